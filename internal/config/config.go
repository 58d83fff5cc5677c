// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
)

// Storage drivers accepted by DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every setting the server needs.
type Config struct {
	Port        int
	DBDriver    string
	DBPath      string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	SettleEpsilon    decimal.Decimal
	MoneyPlaces      int32
	EmptySplitPolicy calculator.EmptySplitPolicy
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to read each key.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := &Config{
		DBDriver:    strings.ToLower(get("DB_DRIVER", DriverSQLite)),
		DBPath:      get("DB_PATH", "./data/splitledger.db"),
		DatabaseURL: get("DATABASE_URL", ""),
		JWTSecret:   get("JWT_SECRET", ""),
		LogFormat:   strings.ToLower(get("LOG_FORMAT", "text")),
		LogLevel:    parseLevel(get("LOG_LEVEL", "info")),
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", get("PORT", ""))
	}
	cfg.Port = port

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	if cfg.SettleEpsilon, err = decimal.NewFromString(get("SETTLE_EPSILON", calculator.DefaultEpsilon.String())); err != nil {
		return nil, fmt.Errorf("invalid SETTLE_EPSILON: %w", err)
	}
	if cfg.SettleEpsilon.IsNegative() {
		return nil, fmt.Errorf("SETTLE_EPSILON must not be negative")
	}

	places, err := strconv.Atoi(get("MONEY_PLACES", strconv.Itoa(int(calculator.DefaultPlaces))))
	if err != nil || places < 0 || places > 8 {
		return nil, fmt.Errorf("invalid MONEY_PLACES %q", get("MONEY_PLACES", ""))
	}
	cfg.MoneyPlaces = int32(places)

	if cfg.EmptySplitPolicy, err = calculator.ParseEmptySplitPolicy(get("EMPTY_SPLIT_POLICY", "skip")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Engine returns a calculator engine configured from cfg.
func (c *Config) Engine() *calculator.Engine {
	return calculator.NewEngine(
		calculator.WithEpsilon(c.SettleEpsilon),
		calculator.WithPlaces(c.MoneyPlaces),
		calculator.WithEmptySplitPolicy(c.EmptySplitPolicy),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
