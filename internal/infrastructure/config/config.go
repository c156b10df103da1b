package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all cart engine configuration
type Config struct {
	App     AppConfig
	Log     LogConfig
	API     APIConfig
	Cache   CacheConfig
	Session SessionConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// APIConfig holds remote cart service client settings
type APIConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	TracingEnabled   bool
}

// CacheConfig holds durable snapshot cache settings
type CacheConfig struct {
	Backend             string // sqlite, redis, memory
	SQLitePath          string
	KeyPrefix           string
	TTL                 time.Duration // redis only; 0 = no expiry
	AllowMemoryFallback bool
	Redis               RedisConfig
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig holds the session token to attach to remote calls. An empty
// token means the engine treats the cart as empty and skips remote calls.
type SessionConfig struct {
	Token string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CARTSYNC_ prefix (e.g. CARTSYNC_SESSION_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.cartsync")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CARTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A false zero value is indistinguishable from "unset"; fallback-on is
	// the safe default for a client-side cache, so it must be set here.
	v.SetDefault("cache.allow_memory_fallback", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		API: APIConfig{
			BaseURL:          v.GetString("api.base_url"),
			Timeout:          v.GetDuration("api.timeout"),
			MaxResponseBytes: v.GetInt64("api.max_response_bytes"),
			TracingEnabled:   v.GetBool("api.tracing_enabled"),
		},
		Cache: CacheConfig{
			Backend:             v.GetString("cache.backend"),
			SQLitePath:          v.GetString("cache.sqlite_path"),
			KeyPrefix:           v.GetString("cache.key_prefix"),
			TTL:                 v.GetDuration("cache.ttl"),
			AllowMemoryFallback: v.GetBool("cache.allow_memory_fallback"),
			Redis: RedisConfig{
				Host:     v.GetString("cache.redis.host"),
				Port:     v.GetInt("cache.redis.port"),
				Password: v.GetString("cache.redis.password"),
				DB:       v.GetInt("cache.redis.db"),
			},
		},
		Session: SessionConfig{
			Token: v.GetString("session.token"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cartsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.API.MaxResponseBytes == 0 {
		cfg.API.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "sqlite"
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "cartsync.db"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "cart:snapshot:"
	}
	if cfg.Cache.Redis.Host == "" {
		cfg.Cache.Redis.Host = "localhost"
	}
	if cfg.Cache.Redis.Port == 0 {
		cfg.Cache.Redis.Port = 6379
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url scheme must be http or https, got %q", u.Scheme)
	}

	switch c.Cache.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, redis, memory; got %q", c.Cache.Backend)
	}

	if c.App.Env == "production" {
		if u.Scheme != "https" {
			return fmt.Errorf("api.base_url must use https in production")
		}
		if c.Log.Format == "console" {
			return fmt.Errorf("log.format must be json in production")
		}
	}

	return nil
}

// Addr returns the host:port address for the Redis backend
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
