package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`

	BotToken           string `env:"BOT_TOKEN"`
	BotUsername        string `env:"BOT_USERNAME" envDefault:"ZentariBot"`
	TelegramBotEnabled bool   `env:"TELEGRAM_BOT_ENABLED" envDefault:"false"`
	WebAppURL          string `env:"WEBAPP_URL"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
	DevMode   bool          `env:"DEV_MODE" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RulesFile string `env:"RULES_FILE"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON   bool   `env:"LOG_JSON" envDefault:"false"`

	// per IP, whole API
	APIRateLimit  int           `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindow time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	// per IP, /auth only
	AuthRateLimit  int           `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindow time.Duration `env:"AUTH_RATE_WINDOW" envDefault:"1m"`
	// per user, mutating game actions
	ActionRateLimit  int           `env:"ACTION_RATE_LIMIT" envDefault:"600"`
	ActionRateWindow time.Duration `env:"ACTION_RATE_WINDOW" envDefault:"1m"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads .env (if present) and the process environment, then validates
// the result for the server.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is Load without validation, for tools that need only a subset.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q: want %s or %s", c.StoreDriver, StorePostgres, StoreMemory))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.BotToken == "" && !c.DevMode {
		errs = append(errs, errors.New("BOT_TOKEN is not set"))
	}
	if c.TelegramBotEnabled && c.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_ENABLED requires BOT_TOKEN"))
	}
	if c.APIRateLimit < 1 || c.AuthRateLimit < 1 || c.ActionRateLimit < 1 {
		errs = append(errs, errors.New("rate limits must be >= 1"))
	}
	return errors.Join(errs...)
}
