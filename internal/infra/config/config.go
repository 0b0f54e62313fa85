package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	CORS     CORSConfig     `yaml:"cors"`
	Body     BodyConfig     `yaml:"body"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Host         string          `yaml:"host"`
	Port         string          `yaml:"port"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures retries of reads that hit an unavailable database.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

// CORSConfig holds the single origin allowed to call the API.
type CORSConfig struct {
	Origin string `yaml:"origin"`
}

// BodyConfig controls the request body parsers.
type BodyConfig struct {
	JSONLimit          int64 `yaml:"jsonLimit"`
	URLEncodedLimit    int64 `yaml:"urlencodedLimit"`
	URLEncodedExtended bool  `yaml:"urlencodedExtended"`
}

// DatabaseConfig describes the tutorial store connection.
type DatabaseConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
	// ConnectTimeout bounds the initial connection attempt; zero waits forever.
	ConnectTimeout    time.Duration   `yaml:"connectTimeout"`
	AwaitBeforeListen bool            `yaml:"awaitBeforeListen"`
	MaxConns          int32           `yaml:"maxConns"`
	MinConns          int32           `yaml:"minConns"`
	Options           DatabaseOptions `yaml:"options"`
}

// DatabaseOptions are legacy driver hints. They are accepted and reported but
// change nothing in the current drivers.
type DatabaseOptions struct {
	UseNewURLParser    bool `yaml:"useNewUrlParser"`
	UseUnifiedTopology bool `yaml:"useUnifiedTopology"`
}

// CacheConfig enables the Valkey read-through cache for tutorials.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	TTL     time.Duration `yaml:"ttl"`
	Prefix  string        `yaml:"prefix"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	envString("PORT", &cfg.HTTP.Port)
	envString("HTTP_HOST", &cfg.HTTP.Host)
	envDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	envDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	envBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	envInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	envInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	envBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	envInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	envDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	envString("CORS_ORIGIN", &cfg.CORS.Origin)

	envInt64("BODY_JSON_LIMIT", &cfg.Body.JSONLimit)
	envInt64("BODY_URLENCODED_LIMIT", &cfg.Body.URLEncodedLimit)
	envBool("BODY_URLENCODED_EXTENDED", &cfg.Body.URLEncodedExtended)

	envString("DATABASE_URL", &cfg.Database.URL)
	envString("DATABASE_NAME", &cfg.Database.Name)
	envDuration("DATABASE_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout)
	envBool("DATABASE_AWAIT_BEFORE_LISTEN", &cfg.Database.AwaitBeforeListen)
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Database.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("DATABASE_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Database.MinConns = int32(parsed)
		}
	}

	envBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	envString("CACHE_ADDR", &cfg.Cache.Addr)
	envDuration("CACHE_TTL", &cfg.Cache.TTL)
	envString("CACHE_PREFIX", &cfg.Cache.Prefix)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

// PORT has no default on purpose.
func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 100 * time.Millisecond,
			},
		},
		CORS: CORSConfig{
			Origin: "http://localhost:4200",
		},
		Body: BodyConfig{
			JSONLimit:          100 << 10,
			URLEncodedLimit:    100 << 10,
			URLEncodedExtended: true,
		},
		Database: DatabaseConfig{
			Name:     "tutorials",
			MaxConns: 4,
			Options: DatabaseOptions{
				UseNewURLParser:    true,
				UseUnifiedTopology: true,
			},
		},
		Cache: CacheConfig{
			TTL:    5 * time.Minute,
			Prefix: "tutorials",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		return errors.New("PORT must be set")
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("PORT must be an integer, got %q", c.HTTP.Port)
	}
	if strings.TrimSpace(c.CORS.Origin) == "" {
		return errors.New("cors.origin cannot be empty")
	}
	if c.Body.JSONLimit <= 0 {
		return errors.New("body.jsonLimit must be positive")
	}
	if c.Body.URLEncodedLimit <= 0 {
		return errors.New("body.urlencodedLimit must be positive")
	}
	if c.Database.ConnectTimeout < 0 {
		return errors.New("database.connectTimeout cannot be negative")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Addr) == "" {
		return errors.New("cache.addr cannot be empty when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}

// PortNumber returns the validated listening port.
func (h HTTPConfig) PortNumber() int {
	port, _ := strconv.Atoi(strings.TrimSpace(h.Port))
	return port
}

// ListenAddress joins host and port for net.Listen.
func (h HTTPConfig) ListenAddress() string {
	return net.JoinHostPort(h.Host, strings.TrimSpace(h.Port))
}
