package app

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/httpx"
)

// Session store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`     // Redis address (default: localhost:6379)
	Password string `yaml:"password"` // Optional
	DB       int    `yaml:"db"`       // Database number (default: 0)
	Prefix   string `yaml:"prefix"`   // Key prefix (default: rollcall:session:)
}

type Config struct {
	APIBaseURL     string        `yaml:"api_url"`          // Register API base URL (default: http://localhost:5000/api)
	RequestTimeout time.Duration `yaml:"request_timeout"`  // Per-request timeout (default: 15s)
	Store          string        `yaml:"store"`            // Session store driver: sqlite, redis, memory (default: sqlite)
	DatabaseFile   string        `yaml:"database_file"`    // SQLite file for the sqlite driver (default: rollcall.db)
	Redis          RedisConfig   `yaml:"redis"`            // Redis settings for the redis driver
	SessionKey     string        `yaml:"session_key"`      // Optional: secret that seals stored tokens
	SessionKeyFile string        `yaml:"session_key_file"` // Optional: file holding the sealing secret
	Env            string        `yaml:"env"`              // Environment (dev, staging, prod) (default: dev)
	LogLevel       string        `yaml:"log_level"`        // Log level (debug, info, warn, error) (default: info)
	LogFormat      string        `yaml:"log_format"`       // Log format (json, text) (default: text)

	// RateLimit throttles outgoing requests. Env only: RATELIMIT_CLIENT_*.
	RateLimit httpx.RateLimitConfig `yaml:"-"`

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer `yaml:"-"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "http://localhost:5000/api",
		RequestTimeout: authsdk.DefaultTimeout,
		Store:          StoreSQLite,
		DatabaseFile:   "rollcall.db",
		Env:            "dev",
		LogLevel:       "info",
		LogFormat:      "text",
		RateLimit:      httpx.ClientLimit,
	}
}

// LoadConfig layers the defaults, the YAML file at path (or
// $ROLLCALL_CONFIG when path is empty) and the environment, in that order.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("ROLLCALL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.APIBaseURL = getEnvOrDefault("ROLLCALL_API_URL", cfg.APIBaseURL)
	cfg.RequestTimeout = getEnvDurationOrDefault("ROLLCALL_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.Store = getEnvOrDefault("ROLLCALL_STORE", cfg.Store)
	cfg.DatabaseFile = getEnvOrDefault("ROLLCALL_DATABASE_FILE", cfg.DatabaseFile)
	cfg.Redis.Addr = getEnvOrDefault("ROLLCALL_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("ROLLCALL_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvIntOrDefault("ROLLCALL_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Prefix = getEnvOrDefault("ROLLCALL_REDIS_PREFIX", cfg.Redis.Prefix)
	cfg.SessionKey = getEnvOrDefault("ROLLCALL_SESSION_KEY", cfg.SessionKey)
	cfg.SessionKeyFile = getEnvOrDefault("ROLLCALL_SESSION_KEY_FILE", cfg.SessionKeyFile)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.RateLimit = httpx.ParseRateLimitFromEnv("CLIENT", cfg.RateLimit)

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIBaseURL)
	}

	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	switch c.Store {
	case StoreSQLite:
		if c.DatabaseFile == "" {
			return errors.New("database file is required for the sqlite store")
		}
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want sqlite, redis or memory)", c.Store)
	}

	if c.SessionKey != "" && c.SessionKeyFile != "" {
		return errors.New("set only one of session key and session key file")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "15s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
