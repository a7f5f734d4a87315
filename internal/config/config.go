// Package config holds process configuration: env-first with an optional
// YAML overlay for auction timings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database holds Postgres connection settings.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the Postgres connection URL.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// Timings configures the auction clocks. Zero values fall back to the
// production defaults.
type Timings struct {
	BidWindowSec        int `yaml:"bid_window_sec"`
	NominationWindowSec int `yaml:"nomination_window_sec"`
	AutoBidMinDelayMs   int `yaml:"auto_bid_min_delay_ms"`
	AutoBidMaxDelayMs   int `yaml:"auto_bid_max_delay_ms"`
	NominationPoolSize  int `yaml:"nomination_pool_size"`
}

// Config is the full process configuration.
type Config struct {
	RedisURL string
	NatsURL  string
	DB       Database
	Timings  Timings `yaml:"timings"`
}

// FromEnv reads configuration from the environment (with defaults) and,
// when AUCTION_CONFIG points at a YAML file, overlays timings from it.
func FromEnv() (*Config, error) {
	cfg := &Config{
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NatsURL:  getEnv("NATS_URL", "nats://localhost:4222"),
		DB: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "auctioneer"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	if path := os.Getenv("AUCTION_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var file struct {
			Timings Timings `yaml:"timings"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.Timings = file.Timings
	}

	return cfg, nil
}

// BidWindow returns the configured bid countdown.
func (t Timings) BidWindow() time.Duration {
	return secondsOr(t.BidWindowSec, 10*time.Second)
}

// NominationWindow returns the configured nomination timeout.
func (t Timings) NominationWindow() time.Duration {
	return secondsOr(t.NominationWindowSec, 30*time.Second)
}

// AutoBidMinDelay returns the lower jitter bound for proxy bids.
func (t Timings) AutoBidMinDelay() time.Duration {
	return millisOr(t.AutoBidMinDelayMs, 500*time.Millisecond)
}

// AutoBidMaxDelay returns the upper jitter bound for proxy bids.
func (t Timings) AutoBidMaxDelay() time.Duration {
	return millisOr(t.AutoBidMaxDelayMs, 1500*time.Millisecond)
}

// PoolSize returns the auto-nomination sample pool size.
func (t Timings) PoolSize() int {
	if t.NominationPoolSize > 0 {
		return t.NominationPoolSize
	}
	return 10
}

func secondsOr(sec int, fallback time.Duration) time.Duration {
	if sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return fallback
}

func millisOr(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
