// Package config loads server configuration from an optional YAML file and DUEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Fanout modes
const (
	FanoutLocal = "local"
	FanoutRedis = "redis"
)

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CleanupInterval is how often empty hubs and stale revocations are swept
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Type string `mapstructure:"type"`
}

// RedisConfig holds Redis connection settings, used by redis storage and redis fanout
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	PlayerTTL    time.Duration `mapstructure:"player_ttl"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// FanoutConfig holds event delivery settings
type FanoutConfig struct {
	Type             string `mapstructure:"type"`
	SubscriberBuffer int    `mapstructure:"subscriber_buffer"`
	HubBuffer        int    `mapstructure:"hub_buffer"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LoggingConfig holds structured logging settings
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is json or text
	Format string `mapstructure:"format"`
}

// Config is the top-level server configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Fanout  FanoutConfig  `mapstructure:"fanout"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Addr returns the "host:port" listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0) // streams stay open indefinitely
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cleanup_interval", time.Minute)

	v.SetDefault("storage.type", StorageMemory)

	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.player_ttl", 7*24*time.Hour)
	v.SetDefault("redis.session_ttl", 7*24*time.Hour)

	v.SetDefault("fanout.type", FanoutLocal)
	v.SetDefault("fanout.subscriber_buffer", 64)
	v.SetDefault("fanout.hub_buffer", 256)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "duelgame")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads the YAML file at path (skipped when path is empty), applies
// DUEL_* environment overrides such as DUEL_REDIS_URL, and validates the result
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all configuration invariants and reports every violation at once
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if c.Server.CleanupInterval <= 0 {
		errs = append(errs, errors.New("server.cleanup_interval must be positive"))
	}

	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.type must be one of [memory, redis], got %q", c.Storage.Type))
	}

	switch c.Fanout.Type {
	case FanoutLocal, FanoutRedis:
	default:
		errs = append(errs, fmt.Errorf("fanout.type must be one of [local, redis], got %q", c.Fanout.Type))
	}
	if c.Fanout.SubscriberBuffer < 1 || c.Fanout.HubBuffer < 1 {
		errs = append(errs, errors.New("fanout buffers must be >= 1"))
	}

	if c.Storage.Type == StorageRedis || c.Fanout.Type == FanoutRedis {
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url must not be empty when redis is in use"))
		}
		if c.Redis.MinIdleConns > c.Redis.PoolSize {
			errs = append(errs, errors.New("redis.min_idle_conns must not exceed redis.pool_size"))
		}
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret must be set (DUEL_AUTH_SECRET)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("logging.format must be one of [json, text], got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger described by the logging section
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
