package bots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"voicebot-platform/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const botColumns = `
id, user_id, name, description, voice_type, language, recognition_language,
system_prompt, greeting, personality, script, slug, has_audio_generated,
is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (Bot, error) {
	var (
		b      Bot
		script []byte
	)
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Description,
		&b.VoiceType,
		&b.Language,
		&b.RecognitionLanguage,
		&b.SystemPrompt,
		&b.Greeting,
		&b.Personality,
		&script,
		&b.Slug,
		&b.HasAudioGenerated,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bot{}, ErrNotFound
		}
		return Bot{}, err
	}
	if len(script) > 0 {
		if err := json.Unmarshal(script, &b.Script); err != nil {
			return Bot{}, err
		}
	}
	return b, nil
}

func encodeScript(items []ScriptItem) (string, error) {
	if items == nil {
		items = []ScriptItem{}
	}
	raw, err := json.Marshal(items)
	return string(raw), err
}

func (r *PostgresRepo) Create(ctx context.Context, b Bot) error {
	script, err := encodeScript(b.Script)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO bots (` + botColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`
	_, err = r.db.ExecContext(ctx, q,
		b.ID,
		b.UserID,
		b.Name,
		b.Description,
		b.VoiceType,
		b.Language,
		b.RecognitionLanguage,
		b.SystemPrompt,
		b.Greeting,
		b.Personality,
		script,
		b.Slug,
		b.HasAudioGenerated,
		b.IsActive,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if utils.IsUniqueViolation(err, "bots_slug_key") {
		return ErrSlugTaken
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (Bot, error) {
	const q = `SELECT ` + botColumns + ` FROM bots WHERE id = $1 AND user_id = $2`
	return scanBot(r.db.QueryRowContext(ctx, q, id, userID))
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Bot, error) {
	const q = `SELECT ` + botColumns + ` FROM bots WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, b Bot) error {
	script, err := encodeScript(b.Script)
	if err != nil {
		return err
	}
	const q = `
UPDATE bots SET
  name = $3, description = $4, voice_type = $5, language = $6,
  recognition_language = $7, system_prompt = $8, greeting = $9,
  personality = $10, script = $11, has_audio_generated = $12,
  is_active = $13, updated_at = $14
WHERE id = $1 AND user_id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		b.ID,
		b.UserID,
		b.Name,
		b.Description,
		b.VoiceType,
		b.Language,
		b.RecognitionLanguage,
		b.SystemPrompt,
		b.Greeting,
		b.Personality,
		script,
		b.HasAudioGenerated,
		b.IsActive,
		b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *PostgresRepo) MarkAudioGenerated(ctx context.Context, userID, id string, seenUpdatedAt, now time.Time) (Bot, error) {
	const q = `
UPDATE bots SET has_audio_generated = TRUE, updated_at = $4
WHERE id = $1 AND user_id = $2 AND updated_at = $3
RETURNING ` + botColumns
	b, err := scanBot(r.db.QueryRowContext(ctx, q, id, userID, seenUpdatedAt, now))
	if !errors.Is(err, ErrNotFound) {
		return b, err
	}
	// Nothing matched: either the bot is gone or it changed under us.
	if _, getErr := r.Get(ctx, userID, id); getErr != nil {
		return Bot{}, getErr
	}
	return Bot{}, ErrStale
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
