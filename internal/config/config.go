// Package config reads server settings from the environment and an optional .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config errors
var (
	ErrBadCSRFKey      = errors.New("THERAPRO_CSRF_KEY must be 64 hex characters")
	ErrMissingKey      = errors.New("key is required in production")
	ErrBadNumber       = errors.New("value must be a positive integer")
	ErrBadDuration     = errors.New("value must be a positive duration")
	ErrUnknownLogLevel = errors.New("log level must be debug, info, warn or error")
)

// Config holds every setting the server and theractl need.
type Config struct {
	Env       string
	Addr      string
	DBPath    string
	StaticDir string

	CSRFKey   []byte
	TicketKey []byte

	CatalogFile string
	SeedFile    string
	RedisAddr   string

	ResendKey string
	EmailFrom string

	AdminUsername     string
	AdminPassword     string
	TherapistUsername string
	TherapistPassword string
	TherapistRecord   string

	SessionTTL    time.Duration
	RateLimit     int
	LogLevel      slog.Level
	SlowRequestMs int
	SlowQueryMs   int
}

// IsProduction reports whether secure cookies and mandatory keys apply.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (when present) and then the environment.
// PRE: none
// POST: Returns a complete Config or the first invalid value
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	c := Config{
		Env:               envOrDefault("THERAPRO_ENV", "development"),
		Addr:              envOrDefault("THERAPRO_ADDR", ":8080"),
		DBPath:            envOrDefault("THERAPRO_DB", "therapro.db"),
		StaticDir:         envOrDefault("THERAPRO_STATIC_DIR", "static"),
		CatalogFile:       os.Getenv("THERAPRO_CATALOG_FILE"),
		SeedFile:          os.Getenv("THERAPRO_SEED_FILE"),
		RedisAddr:         os.Getenv("THERAPRO_REDIS_ADDR"),
		ResendKey:         os.Getenv("THERAPRO_RESEND_KEY"),
		EmailFrom:         envOrDefault("THERAPRO_EMAIL_FROM", "TheraPro <noreply@therapro.local>"),
		AdminUsername:     envOrDefault("THERAPRO_ADMIN_USERNAME", "admin"),
		AdminPassword:     envOrDefault("THERAPRO_ADMIN_PASSWORD", "admin123"),
		TherapistUsername: envOrDefault("THERAPRO_THERAPIST_USERNAME", "therapist"),
		TherapistPassword: envOrDefault("THERAPRO_THERAPIST_PASSWORD", "therapist123"),
		TherapistRecord:   envOrDefault("THERAPRO_THERAPIST_RECORD", "t2"),
	}

	var err error
	if c.CSRFKey, err = csrfKey(os.Getenv("THERAPRO_CSRF_KEY"), c.IsProduction()); err != nil {
		return Config{}, err
	}
	if c.TicketKey, err = secret("THERAPRO_TICKET_KEY", c.IsProduction()); err != nil {
		return Config{}, err
	}
	if c.SessionTTL, err = duration("THERAPRO_SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if c.RateLimit, err = positiveInt("THERAPRO_RATE_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if c.SlowRequestMs, err = positiveInt("THERAPRO_SLOW_REQUEST_MS", 200); err != nil {
		return Config{}, err
	}
	if c.SlowQueryMs, err = positiveInt("THERAPRO_SLOW_QUERY_MS", 50); err != nil {
		return Config{}, err
	}
	if c.LogLevel, err = ParseLogLevel(envOrDefault("THERAPRO_LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownLogLevel)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// csrfKey decodes a 32-byte hex key, generating one outside production.
func csrfKey(keyHex string, production bool) ([]byte, error) {
	if keyHex == "" {
		if production {
			return nil, fmt.Errorf("THERAPRO_CSRF_KEY: %w", ErrMissingKey)
		}
		return randomBytes(32), nil
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != 32 {
		return nil, ErrBadCSRFKey
	}
	return key, nil
}

func secret(key string, production bool) ([]byte, error) {
	if v := os.Getenv(key); v != "" {
		return []byte(v), nil
	}
	if production {
		return nil, fmt.Errorf("%s: %w", key, ErrMissingKey)
	}
	return randomBytes(32), nil
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrBadDuration)
	}
	return d, nil
}

func positiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s=%q: %w", key, v, ErrBadNumber)
	}
	return n, nil
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return b
}
