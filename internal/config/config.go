package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const minSecretLength = 32

var placeholderMarkers = []string{
	"CHANGE_ME",
	"YOUR_SECRET_HERE",
	"REPLACE_ME",
	"INSERT_SECRET",
	"EXAMPLE",
}

var (
	ErrWeakSecret        = errors.New("config: signing secret missing or too short")
	ErrPlaceholderSecret = errors.New("config: signing secret is a placeholder value")
	ErrInvalidThreshold  = errors.New("config: invalid moderation thresholds")
)

// Config is built once at startup and passed to every component. It is
// never mutated after Load returns.
type Config struct {
	HTTPAddr string
	DBPath   string

	RedisAddr     string
	RedisPassword string

	SigningSecret string

	InvoiceTTL     time.Duration
	FreeTierWindow time.Duration
	FreeTierGoal   string

	WarnThreshold  int
	MuteThreshold  int
	MuteDuration   time.Duration
	CooldownWindow time.Duration

	FloodLimit  int
	FloodWindow time.Duration

	RateLimitPerUser int
	RateLimitWindow  time.Duration

	AuditRetentionDays int
	SweepInterval      time.Duration

	LogLevel string
}

// Load reads configuration from the environment (plus an optional .env
// file) and validates it fully. Any validation failure is fatal: no
// component may be constructed from an invalid Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_PATH", "./data/accord.sqlite3")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("INVOICE_TTL", "1h")
	v.SetDefault("FREE_TIER_WINDOW", "24h")
	v.SetDefault("FREE_TIER_GOAL", "stabilize")
	v.SetDefault("WARN_THRESHOLD", 2)
	v.SetDefault("MUTE_THRESHOLD", 3)
	v.SetDefault("MUTE_DURATION", "10m")
	v.SetDefault("COOLDOWN_WINDOW", "24h")
	v.SetDefault("FLOOD_LIMIT", 5)
	v.SetDefault("FLOOD_WINDOW", "10s")
	v.SetDefault("RATE_LIMIT_PER_USER", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("AUDIT_RETENTION_DAYS", 90)
	v.SetDefault("SWEEP_INTERVAL", "5m")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := Config{
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		DBPath:             v.GetString("DB_PATH"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		SigningSecret:      v.GetString("INVOICE_SECRET"),
		InvoiceTTL:         v.GetDuration("INVOICE_TTL"),
		FreeTierWindow:     v.GetDuration("FREE_TIER_WINDOW"),
		FreeTierGoal:       v.GetString("FREE_TIER_GOAL"),
		WarnThreshold:      v.GetInt("WARN_THRESHOLD"),
		MuteThreshold:      v.GetInt("MUTE_THRESHOLD"),
		MuteDuration:       v.GetDuration("MUTE_DURATION"),
		CooldownWindow:     v.GetDuration("COOLDOWN_WINDOW"),
		FloodLimit:         v.GetInt("FLOOD_LIMIT"),
		FloodWindow:        v.GetDuration("FLOOD_WINDOW"),
		RateLimitPerUser:   v.GetInt("RATE_LIMIT_PER_USER"),
		RateLimitWindow:    v.GetDuration("RATE_LIMIT_WINDOW"),
		AuditRetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		SweepInterval:      v.GetDuration("SWEEP_INTERVAL"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the startup invariants. A weak or placeholder signing
// secret must prevent the process from starting at all.
func (c Config) Validate() error {
	if err := ValidateSecret(c.SigningSecret); err != nil {
		return err
	}
	if c.WarnThreshold < 1 || c.MuteThreshold <= c.WarnThreshold {
		return fmt.Errorf("%w: warn=%d mute=%d", ErrInvalidThreshold, c.WarnThreshold, c.MuteThreshold)
	}
	if c.MuteDuration <= 0 {
		return fmt.Errorf("config: mute duration must be positive, got %s", c.MuteDuration)
	}
	if c.FreeTierWindow <= 0 {
		return fmt.Errorf("config: free tier window must be positive, got %s", c.FreeTierWindow)
	}
	if c.InvoiceTTL <= 0 {
		return fmt.Errorf("config: invoice ttl must be positive, got %s", c.InvoiceTTL)
	}
	if strings.TrimSpace(c.FreeTierGoal) == "" {
		return errors.New("config: free tier goal must be set")
	}
	return nil
}

// ValidateSecret rejects secrets that are too short or look like values
// copied from a sample .env.
func ValidateSecret(secret string) error {
	if len(secret) < minSecretLength {
		return ErrWeakSecret
	}
	upper := strings.ToUpper(secret)
	for _, marker := range placeholderMarkers {
		if strings.Contains(upper, marker) {
			return ErrPlaceholderSecret
		}
	}
	return nil
}
