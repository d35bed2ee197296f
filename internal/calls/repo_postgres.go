package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicebot-platform/pkg/utils"
)

const providerCallIDIndex = "call_logs_provider_call_id_key"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `
c.id, c.user_id, c.bot_id, c.phone_number, c.direction, c.status, c.duration,
c.provider_call_id, c.responses, c.transcript, c.sentiment, c.failure_reason,
c.started_at, c.ended_at, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner, extra ...any) (CallLog, error) {
	var (
		c         CallLog
		responses []byte
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	dest := []any{
		&c.ID,
		&c.UserID,
		&c.BotID,
		&c.PhoneNumber,
		&c.Direction,
		&c.Status,
		&c.Duration,
		&c.ProviderCallID,
		&responses,
		&c.Transcript,
		&c.Sentiment,
		&c.FailureReason,
		&startedAt,
		&endedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallLog{}, ErrNotFound
		}
		return CallLog{}, err
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &c.Responses); err != nil {
			return CallLog{}, fmt.Errorf("decode responses for call %s: %w", c.ID, err)
		}
	}
	if startedAt.Valid {
		c.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	return c, nil
}

func encodeResponses(r Responses) (string, error) {
	if r == nil {
		r = Responses{}
	}
	raw, err := r.MarshalJSON()
	return string(raw), err
}

func (r *PostgresRepo) Create(ctx context.Context, c CallLog) error {
	responses, err := encodeResponses(c.Responses)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO call_logs (
  id, user_id, bot_id, phone_number, direction, status, duration,
  provider_call_id, responses, transcript, sentiment, failure_reason,
  started_at, ended_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID,
		c.UserID,
		c.BotID,
		c.PhoneNumber,
		c.Direction,
		c.Status,
		c.Duration,
		c.ProviderCallID,
		responses,
		c.Transcript,
		c.Sentiment,
		c.FailureReason,
		c.StartedAt,
		c.EndedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if utils.IsUniqueViolation(err, providerCallIDIndex) {
		return ErrDuplicateProviderCallID
	}
	return err
}

func (r *PostgresRepo) SetProviderCallID(ctx context.Context, id, providerCallID string, now time.Time) error {
	const q = `
UPDATE call_logs SET provider_call_id = $2, updated_at = $3
WHERE id = $1 AND provider_call_id = ''
`
	res, err := r.db.ExecContext(ctx, q, id, providerCallID, now)
	if err != nil {
		if utils.IsUniqueViolation(err, providerCallIDIndex) {
			return ErrDuplicateProviderCallID
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.exists(ctx, id)
	}
	return nil
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, reason string, now time.Time) error {
	const q = `
UPDATE call_logs
SET status = 'failed', failure_reason = $2, ended_at = COALESCE(ended_at, $3), updated_at = $3
WHERE id = $1 AND status NOT IN ('completed', 'failed', 'busy', 'no-answer')
`
	res, err := r.db.ExecContext(ctx, q, id, reason, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.exists(ctx, id)
	}
	return nil
}

func (r *PostgresRepo) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM call_logs WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Reconcile locks the row by provider id, applies fn and writes the result
// in the same transaction. Concurrent webhooks for one call serialize here.
func (r *PostgresRepo) Reconcile(ctx context.Context, providerCallID string, fn ReconcileFunc) (CallLog, bool, error) {
	if providerCallID == "" {
		return CallLog{}, false, ErrNotFound
	}

	var (
		out     CallLog
		changed bool
	)
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `SELECT ` + callColumns + ` FROM call_logs c WHERE c.provider_call_id = $1 FOR UPDATE`
		cur, err := scanCall(tx.QueryRowContext(ctx, sel, providerCallID))
		if err != nil {
			return err
		}

		next, ok := fn(cur)
		if !ok {
			out = cur
			return nil
		}
		responses, err := encodeResponses(next.Responses)
		if err != nil {
			return err
		}
		const upd = `
UPDATE call_logs
SET responses = $2, duration = $3, status = $4, transcript = $5, ended_at = $6, updated_at = $7
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, upd,
			cur.ID,
			responses,
			next.Duration,
			next.Status,
			next.Transcript,
			next.EndedAt,
			next.UpdatedAt,
		); err != nil {
			return err
		}
		out, changed = next, true
		return nil
	})
	if err != nil {
		return CallLog{}, false, err
	}
	return out, changed, nil
}

func (r *PostgresRepo) ListByBot(ctx context.Context, userID, botID string, limit int) ([]CallLog, error) {
	const q = `
SELECT ` + callColumns + `
FROM call_logs c
WHERE c.user_id = $1 AND c.bot_id = $2
ORDER BY c.created_at DESC, c.id DESC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, userID, botID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]CallLog, error) {
	const q = `
SELECT ` + callColumns + `, b.name
FROM call_logs c
JOIN bots b ON b.id = c.bot_id
WHERE c.user_id = $1
ORDER BY c.created_at DESC, c.id DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallLog
	for rows.Next() {
		var botName string
		c, err := scanCall(rows, &botName)
		if err != nil {
			return nil, err
		}
		c.BotName = botName
		out = append(out, c)
	}
	return out, rows.Err()
}
