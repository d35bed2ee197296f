package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo writes to audit_events. It only ever inserts.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, user_id, type, bot_id, call_id, ip_address, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::jsonb, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.UserID, string(e.Type), e.BotID, e.CallID, e.IPAddress, e.Message, e.Metadata, e.CreatedAt)
	return err
}
