package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	pkgerrors "github.com/pkg/errors"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	CallEngine  CallEngineConfig
	Webhook     WebhookConfig
	Credentials CredentialsConfig
}

// APP_*
type AppConfig struct {
	Env      string
	Port     int
	LogLevel string `split_words:"true"`
}

// DB_*
type DBConfig struct {
	Host     string
	Port     int `default:"5432"`
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// REDIS_*
type RedisConfig struct {
	Host     string
	Port     int `default:"6379"`
	Password string

	// Max call triggers a single user may have in flight.
	CallConcurrency int           `split_words:"true" default:"3"`
	CallSlotTTL     time.Duration `split_words:"true" default:"2m"`
}

// JWT_*
type AuthConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration `split_words:"true"`
}

// CALLENGINE_*
type CallEngineConfig struct {
	URL         string
	Timeout     time.Duration `default:"20s"`
	MaxAttempts int           `split_words:"true" default:"2"`
}

// WEBHOOK_*
type WebhookConfig struct {
	Secret string
}

// CREDENTIALS_*
type CredentialsConfig struct {
	// 64 hex chars, decoded into an AES-256 key.
	Key string
}

type section struct {
	prefix string
	target any
}

// Load reads .env (if present) and the process environment, then validates.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (Config, error) {
	var c Config
	sections := []section{
		{"APP", &c.App},
		{"DB", &c.DB},
		{"REDIS", &c.Redis},
		{"JWT", &c.Auth},
		{"CALLENGINE", &c.CallEngine},
		{"WEBHOOK", &c.Webhook},
		{"CREDENTIALS", &c.Credentials},
	}

	var parseErrs []error
	for _, s := range sections {
		if err := envconfig.Process(s.prefix, s.target); err != nil {
			parseErrs = append(parseErrs, pkgerrors.Wrapf(err, "load %s_* env", s.prefix))
		}
	}
	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	c.App.Env = strings.TrimSpace(c.App.Env)
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.CallConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_CALL_CONCURRENCY must be > 0, got %d", c.Redis.CallConcurrency))
	}
	if c.Redis.CallSlotTTL <= 0 {
		errs = append(errs, errors.New("REDIS_CALL_SLOT_TTL must be > 0"))
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.Issuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.Audience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTTL <= 0 {
		c.Auth.AccessTTL = 7 * 24 * time.Hour
	}

	if c.CallEngine.URL == "" {
		errs = append(errs, errors.New("CALLENGINE_URL is required"))
	} else if u, err := url.Parse(c.CallEngine.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CALLENGINE_URL must be an absolute URL, got %q", c.CallEngine.URL))
	}
	if c.CallEngine.Timeout <= 0 {
		errs = append(errs, errors.New("CALLENGINE_TIMEOUT must be > 0"))
	}
	if c.CallEngine.MaxAttempts < 1 || c.CallEngine.MaxAttempts > 3 {
		errs = append(errs, fmt.Errorf("CALLENGINE_MAX_ATTEMPTS must be between 1 and 3, got %d", c.CallEngine.MaxAttempts))
	}

	if c.Webhook.Secret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}

	if _, err := c.CredentialsKey(); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// CredentialsKey decodes CREDENTIALS_KEY into a 32-byte AES key.
func (c Config) CredentialsKey() ([]byte, error) {
	raw := strings.TrimSpace(c.Credentials.Key)
	if raw == "" {
		return nil, errors.New("CREDENTIALS_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil || len(key) != 32 {
		return nil, errors.New("CREDENTIALS_KEY must be 64 hex characters")
	}
	return key, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
