package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voicebot-platform/internal/vault"
	"voicebot-platform/pkg/utils"
)

// PostgresRepo stores users in the users table. The telephony auth secret is
// sealed before it is written and opened after it is read.
type PostgresRepo struct {
	db     *sql.DB
	sealer *vault.Sealer
}

func NewPostgresRepo(db *sql.DB, sealer *vault.Sealer) *PostgresRepo {
	return &PostgresRepo{db: db, sealer: sealer}
}

const userColumns = `
id, name, email, password_hash, avatar,
telephony_account_id, telephony_auth_secret, telephony_number,
plan, minutes_used, minutes_limit, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, u User) error {
	sealed, err := r.sealer.Seal(u.Telephony.AuthSecret)
	if err != nil {
		return fmt.Errorf("seal telephony secret: %w", err)
	}
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	_, err = r.db.ExecContext(ctx, q,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Avatar,
		u.Telephony.AccountID,
		sealed,
		u.Telephony.OriginatingNumber,
		u.Subscription.Plan,
		u.Subscription.MinutesUsed,
		u.Subscription.MinutesLimit,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if utils.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresRepo) UpdateProfile(ctx context.Context, id, name, avatar string, now time.Time) (User, error) {
	const q = `
UPDATE users SET name = $2, avatar = $3, updated_at = $4
WHERE id = $1
RETURNING ` + userColumns
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, name, avatar, now))
}

func (r *PostgresRepo) UpdateTelephony(ctx context.Context, id string, cfg TelephonyConfig, now time.Time) (User, error) {
	sealed, err := r.sealer.Seal(cfg.AuthSecret)
	if err != nil {
		return User{}, fmt.Errorf("seal telephony secret: %w", err)
	}
	const q = `
UPDATE users
SET telephony_account_id = $2, telephony_auth_secret = $3, telephony_number = $4, updated_at = $5
WHERE id = $1
RETURNING ` + userColumns
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, cfg.AccountID, sealed, cfg.OriginatingNumber, now))
}

func (r *PostgresRepo) scanOne(row *sql.Row) (User, error) {
	var (
		u      User
		sealed string
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar,
		&u.Telephony.AccountID,
		&sealed,
		&u.Telephony.OriginatingNumber,
		&u.Subscription.Plan,
		&u.Subscription.MinutesUsed,
		&u.Subscription.MinutesLimit,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	secret, err := r.sealer.Open(sealed)
	if err != nil {
		return User{}, fmt.Errorf("open telephony secret for user %s: %w", u.ID, err)
	}
	u.Telephony.AuthSecret = secret
	return u, nil
}
