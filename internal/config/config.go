package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Form feedback modes.
const (
	FeedbackSilent   = "silent"
	FeedbackDetailed = "detailed"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"production"`

	// MySQLDSN wins over the individual DB_* components when set.
	MySQLDSN string `env:"MYSQL_DSN"`
	DBUser   string `env:"DB_USER" envDefault:"root"`
	DBPass   string `env:"DB_PASS"`
	DBHost   string `env:"DB_HOST" envDefault:"localhost:3306"`
	DBName   string `env:"DB_NAME" envDefault:"mailwriter"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	SessionSecret string `env:"SECRET_KEY" envDefault:"secret123"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"false"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`

	EmailUser string `env:"EMAIL_USER"`
	EmailPass string `env:"EMAIL_PASS"`
	SMTPHost  string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"465"`

	LLMAPIKey  string `env:"OPENROUTER_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"mistralai/mistral-7b-instruct"`

	KnowledgeFile string `env:"EMAILS_FILE" envDefault:"emails.txt"`

	FormFeedback           string        `env:"FORM_FEEDBACK" envDefault:"silent"`
	OTPTTL                 time.Duration `env:"OTP_TTL" envDefault:"0s"`
	DuplicateEmailPrecheck bool          `env:"DUPLICATE_EMAIL_PRECHECK" envDefault:"false"`
	SurfaceMailFailure     bool          `env:"SURFACE_MAIL_FAILURE" envDefault:"false"`
	// PendingTTL of zero keeps the pending registration for the browser session.
	PendingTTL             time.Duration `env:"PENDING_REGISTRATION_TTL" envDefault:"0s"`
	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// Load reads an optional .env file, then builds Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.FormFeedback {
	case FeedbackSilent, FeedbackDetailed:
	default:
		return nil, fmt.Errorf("FORM_FEEDBACK must be %q or %q, got %q", FeedbackSilent, FeedbackDetailed, cfg.FormFeedback)
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SECRET_KEY must be set")
	}
	if cfg.OTPTTL < 0 || cfg.PendingTTL < 0 {
		return nil, errors.New("OTP_TTL and PENDING_REGISTRATION_TTL must be >= 0")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// DSN returns the MySQL connection string.
func (c *Config) DSN() string {
	if c.MySQLDSN != "" {
		return c.MySQLDSN
	}
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPass
	mc.Net = "tcp"
	mc.Addr = c.DBHost
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// DetailedFeedback reports whether failed form submissions explain themselves.
func (c *Config) DetailedFeedback() bool {
	return c.FormFeedback == FeedbackDetailed
}

// LoadKnowledge reads the optional knowledge file. A missing file yields "".
func LoadKnowledge(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read knowledge file: %w", err)
	}
	return string(data), nil
}
