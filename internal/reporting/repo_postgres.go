package reporting

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) CallTotalsByBot(ctx context.Context, userID string) ([]BotCallTotals, error) {
	if userID == "" {
		return nil, errors.New("user_id required")
	}
	const q = `
SELECT bot_id,
       COUNT(*),
       COUNT(*) FILTER (WHERE status IN ('completed','failed','busy','no-answer')),
       COUNT(*) FILTER (WHERE status = 'completed'),
       COALESCE(SUM(duration), 0)
FROM call_logs
WHERE user_id = $1
GROUP BY bot_id
ORDER BY bot_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BotCallTotals
	for rows.Next() {
		var t BotCallTotals
		if err := rows.Scan(&t.BotID, &t.Calls, &t.Terminal, &t.Completed, &t.DurationSeconds); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
