package config

import (
	"fmt"
	"strings"
	"time"

	"channel-backend/internal/domain"
)

// Config is the service configuration.
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Binance   BinanceConfig        `mapstructure:"binance"`
	Database  DatabaseConfig       `mapstructure:"database"`
	Redis     RedisConfig          `mapstructure:"redis"`
	Firebase  FirebaseConfig       `mapstructure:"firebase"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Watchlist WatchlistConfig      `mapstructure:"watchlist"`
	Channel   domain.ChannelConfig `mapstructure:"channel"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	WSPushInterval time.Duration `mapstructure:"ws_push_interval"`
}

type BinanceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig configures Postgres. An empty URL keeps snapshots in memory.
type DatabaseConfig struct {
	URL               string        `mapstructure:"url"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisConfig configures the snapshot cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// FirebaseConfig holds FCM credentials. With neither set, alerts are off.
type FirebaseConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchlistConfig lists what the background loop keeps evaluated.
type WatchlistConfig struct {
	Symbols       []string      `mapstructure:"symbols"`
	Intervals     []string      `mapstructure:"intervals"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Limit         int           `mapstructure:"limit"`
	Concurrency   int           `mapstructure:"concurrency"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// ValidInterval reports whether interval is a supported kline interval.
func ValidInterval(interval string) bool {
	return validIntervals[interval]
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			WSPushInterval: 5 * time.Second,
		},
		Binance: BinanceConfig{
			BaseURL:           "https://fapi.binance.com",
			RequestsPerSecond: 10,
			Burst:             10,
			Timeout:           10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:          10,
			MinConns:          2,
			MaxConnLifetime:   30 * time.Minute,
			MaxConnIdleTime:   5 * time.Minute,
			HealthCheckPeriod: 30 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Watchlist: WatchlistConfig{
			Symbols:       []string{"BTCUSDT", "ETHUSDT"},
			Intervals:     []string{"1d"},
			PollInterval:  time.Minute,
			Limit:         500,
			Concurrency:   10,
			AlertCooldown: 30 * time.Minute,
		},
		Channel: domain.DefaultChannelConfig(),
	}
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.WSPushInterval <= 0 {
		return fmt.Errorf("ws push interval must be positive")
	}

	if strings.TrimSpace(c.Binance.BaseURL) == "" {
		return fmt.Errorf("binance base url is required")
	}
	if c.Binance.RequestsPerSecond <= 0 || c.Binance.Burst <= 0 {
		return fmt.Errorf("binance rate limit must be positive")
	}

	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max conns must be at least 1")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min conns must be between 0 and max conns")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Watchlist.PollInterval <= 0 {
		return fmt.Errorf("watchlist poll interval must be positive")
	}
	if c.Watchlist.Limit < 2 || c.Watchlist.Limit > 1500 {
		return fmt.Errorf("watchlist limit must be between 2 and 1500, got %d", c.Watchlist.Limit)
	}
	if c.Watchlist.Concurrency < 1 {
		return fmt.Errorf("watchlist concurrency must be at least 1")
	}
	for _, iv := range c.Watchlist.Intervals {
		if !ValidInterval(iv) {
			return fmt.Errorf("invalid watchlist interval: %s", iv)
		}
	}

	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	return nil
}
