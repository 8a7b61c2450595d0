package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultDatabaseURL = "host=localhost user=postgres password=postgres dbname=koop port=5432 sslmode=disable"
	// signs tokens in DEBUG mode when SECRET_KEY is unset
	debugSecretKey = "koop-debug-secret-key-do-not-use-in-production"
)

type Config struct {
	HTTPPort    string
	DatabaseURL string
	SecretKey   string
	Debug       bool
	CORSOrigins string
	TimeZone    string

	Week     IntervalConfig
	Ordering IntervalConfig

	DefaultUserFund decimal.Decimal

	Email EmailConfig
	Redis RedisConfig
	Log   LogConfig

	SentryDSN string
}

// IntervalConfig anchors a recurring interval at a weekday and hour.
type IntervalConfig struct {
	Weekday string
	Hour    int
	Length  time.Duration
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level    string
	Encoding string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_URL", defaultDatabaseURL)
	v.SetDefault("SECRET_KEY", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("TIME_ZONE", "Europe/Warsaw")

	v.SetDefault("KOOP_WEEK_INTERVAL_START_WEEKDAY", "saturday")
	v.SetDefault("KOOP_WEEK_INTERVAL_START_HOUR", 1)
	v.SetDefault("KOOP_ORDERING_INTERVAL_START_WEEKDAY", "saturday")
	v.SetDefault("KOOP_ORDERING_INTERVAL_START_HOUR", 12)
	v.SetDefault("KOOP_ORDERING_INTERVAL_LENGTH", 56)

	v.SetDefault("DEFAULT_USER_FUND", "1.3")

	v.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_PORT", 465)
	v.SetDefault("EMAIL_HOST_USER", "")
	v.SetDefault("EMAIL_HOST_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("SENTRY_DSN", "")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	fund, err := decimal.NewFromString(v.GetString("DEFAULT_USER_FUND"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_USER_FUND: %w", err)
	}

	cfg := &Config{
		HTTPPort:    v.GetString("HTTP_PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		SecretKey:   v.GetString("SECRET_KEY"),
		Debug:       v.GetBool("DEBUG"),
		CORSOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		TimeZone:    v.GetString("TIME_ZONE"),
		Week: IntervalConfig{
			Weekday: strings.ToLower(v.GetString("KOOP_WEEK_INTERVAL_START_WEEKDAY")),
			Hour:    v.GetInt("KOOP_WEEK_INTERVAL_START_HOUR"),
			Length:  7 * 24 * time.Hour,
		},
		Ordering: IntervalConfig{
			Weekday: strings.ToLower(v.GetString("KOOP_ORDERING_INTERVAL_START_WEEKDAY")),
			Hour:    v.GetInt("KOOP_ORDERING_INTERVAL_START_HOUR"),
			Length:  time.Duration(v.GetInt("KOOP_ORDERING_INTERVAL_LENGTH")) * time.Hour,
		},
		DefaultUserFund: fund,
		Email: EmailConfig{
			Host:     v.GetString("EMAIL_HOST"),
			Port:     v.GetInt("EMAIL_PORT"),
			User:     v.GetString("EMAIL_HOST_USER"),
			Password: v.GetString("EMAIL_HOST_PASSWORD"),
			From:     v.GetString("EMAIL_FROM"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
		SentryDSN: v.GetString("SENTRY_DSN"),
	}

	if cfg.Week.Hour < 0 || cfg.Week.Hour > 23 || cfg.Ordering.Hour < 0 || cfg.Ordering.Hour > 23 {
		return nil, fmt.Errorf("interval start hour must be within 0..23")
	}
	if cfg.Ordering.Length <= 0 {
		return nil, fmt.Errorf("KOOP_ORDERING_INTERVAL_LENGTH must be positive")
	}
	if cfg.Debug && cfg.SecretKey == "" {
		cfg.SecretKey = debugSecretKey
	}
	if !cfg.Debug {
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required outside DEBUG mode")
		}
		if len(cfg.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters")
		}
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.User
	}
	return cfg, nil
}

// Warn logs settings that are fine for development but not for production.
func (c *Config) Warn(log *zap.Logger) {
	if c.DatabaseURL == defaultDatabaseURL {
		log.Warn("DATABASE_URL uses the default value, set your own postgres DSN in production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		log.Warn("CORS_ALLOWED_ORIGINS uses the default value")
	}
	if c.Debug {
		log.Warn("DEBUG is on: the ordering window is always open")
	}
	if c.SecretKey == debugSecretKey {
		log.Warn("SECRET_KEY is unset, tokens are signed with the built-in debug key")
	}
	if c.SentryDSN != "" {
		log.Warn("SENTRY_DSN is set but error reporting to Sentry is not supported, ignoring")
	}
}
