// Package config loads server settings.
//
// Порядок применения: значения по умолчанию, затем YAML файл (если указан),
// затем .env файл и переменные окружения. Переменные окружения имеют
// наивысший приоритет.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment окружение разработки
	EnvDevelopment = "development"
	// EnvProduction боевое окружение
	EnvProduction = "production"

	// MailProviderLog письма только пишутся в лог
	MailProviderLog = "log"
	// MailProviderBrevo письма отправляются через Brevo API
	MailProviderBrevo = "brevo"
)

// Секреты по умолчанию, допустимы только в development
const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
	devVerifySecret  = "dev-verify-email-secret-change-me"
)

// JWTConfig настройки токенов
type JWTConfig struct {
	AccessSecret      string        `yaml:"access_secret"`
	RefreshSecret     string        `yaml:"refresh_secret"`
	VerifyEmailSecret string        `yaml:"verify_email_secret"`
	AccessTTL         time.Duration `yaml:"access_ttl"`
	RefreshTTL        time.Duration `yaml:"refresh_ttl"`
	VerifyEmailTTL    time.Duration `yaml:"verify_email_ttl"`
}

// MailConfig настройки отправки писем
type MailConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// RateLimitConfig ограничение запросов к /api/auth/ на один IP
// TrustProxy включает учет X-Forwarded-For/X-Real-IP (только за reverse proxy)
type RateLimitConfig struct {
	PerMinute  int  `yaml:"per_minute"`
	Burst      int  `yaml:"burst"`
	TrustProxy bool `yaml:"trust_proxy"`
}

// Config holds runtime settings of the server
type Config struct {
	JWT            JWTConfig       `yaml:"jwt"`
	Mail           MailConfig      `yaml:"mail"`
	Env            string          `yaml:"env"`
	Addr           string          `yaml:"addr"`
	DatabaseDSN    string          `yaml:"database_dsn"`
	FrontendURL    string          `yaml:"frontend_url"`
	GoogleClientID string          `yaml:"google_client_id"`
	LogLevel       string          `yaml:"log_level"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	BcryptCost     int             `yaml:"bcrypt_cost"`
}

// Default returns development defaults
func Default() *Config {
	return &Config{
		Env:         EnvDevelopment,
		Addr:        ":5000",
		DatabaseDSN: "inventory.db",
		FrontendURL: "http://localhost:3000",
		LogLevel:    "info",
		BcryptCost:  10,
		JWT: JWTConfig{
			AccessSecret:      devAccessSecret,
			RefreshSecret:     devRefreshSecret,
			VerifyEmailSecret: devVerifySecret,
			AccessTTL:         24 * time.Hour,
			RefreshTTL:        7 * 24 * time.Hour,
			VerifyEmailTTL:    7 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Provider:  MailProviderLog,
			FromEmail: "no-reply@inventory.local",
			FromName:  "Inventory",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			Burst:     10,
		},
	}
}

// Load builds Config: defaults, optional YAML file, .env file, environment
// Пустой path означает, что YAML файл не используется
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
		}
	}

	// .env не обязателен; уже заданные переменные окружения не перезаписываются
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	override := func(env string, apply func(string)) {
		if v := os.Getenv(env); v != "" {
			apply(v)
		}
	}
	duration := func(env string, dst *time.Duration) {
		override(env, func(v string) {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", env, err))
				return
			}
			*dst = d
		})
	}
	integer := func(env string, dst *int) {
		override(env, func(v string) {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", env, err))
				return
			}
			*dst = n
		})
	}

	override("APP_ENV", func(v string) { c.Env = v })
	override("APP_ADDR", func(v string) { c.Addr = v })
	override("DATABASE_DSN", func(v string) { c.DatabaseDSN = v })
	override("FRONTEND_URL", func(v string) { c.FrontendURL = v })
	override("GOOGLE_CLIENT_ID", func(v string) { c.GoogleClientID = v })
	override("LOG_LEVEL", func(v string) { c.LogLevel = v })

	override("JWT_ACCESS_SECRET", func(v string) { c.JWT.AccessSecret = v })
	override("JWT_REFRESH_SECRET", func(v string) { c.JWT.RefreshSecret = v })
	override("VERIFY_EMAIL_SECRET", func(v string) { c.JWT.VerifyEmailSecret = v })
	duration("JWT_ACCESS_TTL", &c.JWT.AccessTTL)
	duration("JWT_REFRESH_TTL", &c.JWT.RefreshTTL)
	duration("VERIFY_EMAIL_TTL", &c.JWT.VerifyEmailTTL)

	override("MAIL_PROVIDER", func(v string) { c.Mail.Provider = v })
	override("BREVO_API_KEY", func(v string) { c.Mail.APIKey = v })
	override("MAIL_FROM_EMAIL", func(v string) { c.Mail.FromEmail = v })
	override("MAIL_FROM_NAME", func(v string) { c.Mail.FromName = v })

	integer("BCRYPT_COST", &c.BcryptCost)
	integer("RATE_LIMIT_PER_MINUTE", &c.RateLimit.PerMinute)
	integer("RATE_LIMIT_BURST", &c.RateLimit.Burst)
	override("RATE_LIMIT_TRUST_PROXY", func(v string) {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_TRUST_PROXY: %w", err))
			return
		}
		c.RateLimit.TrustProxy = b
	})

	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}

	if c.Addr == "" {
		return errors.New("APP_ADDR is required")
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	secrets := map[string]string{
		"JWT_ACCESS_SECRET":   c.JWT.AccessSecret,
		"JWT_REFRESH_SECRET":  c.JWT.RefreshSecret,
		"VERIFY_EMAIL_SECRET": c.JWT.VerifyEmailSecret,
	}
	for name, v := range secrets {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret ||
		c.JWT.AccessSecret == c.JWT.VerifyEmailSecret ||
		c.JWT.RefreshSecret == c.JWT.VerifyEmailSecret {
		return errors.New("JWT_ACCESS_SECRET, JWT_REFRESH_SECRET and VERIFY_EMAIL_SECRET must differ")
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.VerifyEmailTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}

	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderBrevo:
		if c.Mail.APIKey == "" {
			return errors.New("BREVO_API_KEY is required for brevo mail provider")
		}
		if c.Mail.FromEmail == "" {
			return errors.New("MAIL_FROM_EMAIL is required for brevo mail provider")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}

	if c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit values must be positive")
	}

	if c.IsProduction() {
		if c.JWT.AccessSecret == devAccessSecret ||
			c.JWT.RefreshSecret == devRefreshSecret ||
			c.JWT.VerifyEmailSecret == devVerifySecret {
			return errors.New("development secrets must not be used in production")
		}
		if c.Mail.Provider != MailProviderBrevo {
			return errors.New("production requires MAIL_PROVIDER=brevo")
		}
	}

	return nil
}
