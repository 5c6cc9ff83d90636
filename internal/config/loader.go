package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from configPath, or from config.yaml in the
// usual locations when configPath is empty. CHANNEL_* environment variables
// override file values (CHANNEL_DATABASE_URL, CHANNEL_CHANNEL_LENGTH, ...).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/channel-backend")
	}

	setDefaults(v)

	v.SetEnvPrefix("CHANNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.ws_push_interval", d.Server.WSPushInterval)

	v.SetDefault("binance.base_url", d.Binance.BaseURL)
	v.SetDefault("binance.requests_per_second", d.Binance.RequestsPerSecond)
	v.SetDefault("binance.burst", d.Binance.Burst)
	v.SetDefault("binance.timeout", d.Binance.Timeout)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.min_conns", d.Database.MinConns)
	v.SetDefault("database.max_conn_lifetime", d.Database.MaxConnLifetime)
	v.SetDefault("database.max_conn_idle_time", d.Database.MaxConnIdleTime)
	v.SetDefault("database.health_check_period", d.Database.HealthCheckPeriod)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("firebase.credentials_path", "")
	v.SetDefault("firebase.credentials_json", "")

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("watchlist.symbols", d.Watchlist.Symbols)
	v.SetDefault("watchlist.intervals", d.Watchlist.Intervals)
	v.SetDefault("watchlist.poll_interval", d.Watchlist.PollInterval)
	v.SetDefault("watchlist.limit", d.Watchlist.Limit)
	v.SetDefault("watchlist.concurrency", d.Watchlist.Concurrency)
	v.SetDefault("watchlist.alert_cooldown", d.Watchlist.AlertCooldown)

	v.SetDefault("channel.price", string(d.Channel.Price))
	v.SetDefault("channel.deviations", d.Channel.Deviations)
	v.SetDefault("channel.full_range", d.Channel.FullRange)
	v.SetDefault("channel.extend_right", d.Channel.ExtendRight)
	v.SetDefault("channel.extend_left", d.Channel.ExtendLeft)
	v.SetDefault("channel.regression_type", string(d.Channel.RegressionType))
	v.SetDefault("channel.range_type", string(d.Channel.RangeType))
	v.SetDefault("channel.length", d.Channel.Length)
	v.SetDefault("channel.start_date", d.Channel.StartDate)
	v.SetDefault("channel.expansion_bars", d.Channel.ExpansionBars)
	v.SetDefault("channel.color", d.Channel.Color)
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
