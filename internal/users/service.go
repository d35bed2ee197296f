package users

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens. *auth.Manager satisfies it.
type TokenIssuer interface {
	Issue(now time.Time, userID, email string) (string, error)
}

// Auditor records credential changes. Failures never block the change.
type Auditor interface {
	LogTelephonyUpdated(ctx context.Context, userID string, configured bool) error
}

type Service struct {
	repo    Repository
	tokens  TokenIssuer
	auditor Auditor
	clock   func() time.Time
	cost    int
}

func NewService(repo Repository, tokens TokenIssuer, auditor Auditor) *Service {
	return &Service{repo: repo, tokens: tokens, auditor: auditor, clock: time.Now, cost: 12}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TelephonyInput struct {
	AccountID         string `json:"accountSid"`
	AuthSecret        string `json:"authToken"`
	OriginatingNumber string `json:"phoneNumber"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	switch {
	case utf8.RuneCountInString(name) < 2:
		return Session{}, apperr.Validation("name must be at least 2 characters")
	case !emailRe.MatchString(email):
		return Session{}, apperr.Validation("please provide a valid email")
	case len(in.Password) < 6:
		return Session{}, apperr.Validation("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, apperr.Persistence("hash password", err)
	}

	now := s.clock().UTC()
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Subscription: Subscription{Plan: PlanFree, MinutesLimit: DefaultMinutesLimit},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Session{}, apperr.Conflict("user already exists with this email")
		}
		return Session{}, apperr.Persistence("create user", err)
	}
	logger.From(ctx).Info("user registered", "user_id", u.ID)
	return s.session(u, now)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, apperr.Unauthorized("invalid email or password")
		}
		return Session{}, apperr.Persistence("load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return Session{}, apperr.Unauthorized("invalid email or password")
	}
	return s.session(u, s.clock().UTC())
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Persistence("load user", err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name, avatar string) (User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return User{}, apperr.Validation("name must be at least 2 characters")
	}
	u, err := s.repo.UpdateProfile(ctx, userID, name, strings.TrimSpace(avatar), s.clock().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Persistence("update profile", err)
	}
	return u, nil
}

// UpdateTelephony replaces the user's telephony credentials. Blank values are
// accepted; the config then reports itself as not configured.
func (s *Service) UpdateTelephony(ctx context.Context, userID string, in TelephonyInput) (User, error) {
	cfg := TelephonyConfig{
		AccountID:         strings.TrimSpace(in.AccountID),
		AuthSecret:        strings.TrimSpace(in.AuthSecret),
		OriginatingNumber: strings.TrimSpace(in.OriginatingNumber),
	}
	u, err := s.repo.UpdateTelephony(ctx, userID, cfg, s.clock().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Persistence("update telephony config", err)
	}

	if s.auditor != nil {
		if err := s.auditor.LogTelephonyUpdated(ctx, userID, cfg.IsConfigured()); err != nil {
			logger.From(ctx).Warn("audit telephony update failed", "user_id", userID, "err", err)
		}
	}
	return u, nil
}

func (s *Service) session(u User, now time.Time) (Session, error) {
	tok, err := s.tokens.Issue(now, u.ID, u.Email)
	if err != nil {
		return Session{}, apperr.Persistence("issue token", err)
	}
	return Session{Token: tok, User: u}, nil
}
