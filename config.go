// config.go
// ----------
// This file defines the client configuration: base URL, timeout, default
// headers, retry policy knobs, cache TTL, and circuit breaker thresholds.
// Configuration can be built in code with DefaultConfig or loaded from a
// YAML/JSON file with environment overrides via LoadConfig.
package taskstream

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
	defaultCacheTTL       = 5 * time.Minute
)

// Config holds everything a Client needs. Zero values fall back to the
// defaults above during NewClient.
type Config struct {
	BaseURL        string            `mapstructure:"baseUrl"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	DefaultHeaders map[string]string `mapstructure:"defaultHeaders"`

	MaxRetries     int           `mapstructure:"maxRetries"`
	RetryBaseDelay time.Duration `mapstructure:"retryBaseDelay"`

	CacheTTL time.Duration `mapstructure:"cacheTTL"`

	Breaker BreakerConfig `mapstructure:"breaker"`

	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns a Config with production defaults for the given base URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Timeout:        defaultTimeout,
		MaxRetries:     defaultMaxRetries,
		RetryBaseDelay: defaultRetryBaseDelay,
		CacheTTL:       defaultCacheTTL,
		Breaker:        DefaultBreakerConfig(),
	}
}

// Validate checks required fields and sane ranges before the config is used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("config: baseUrl must not be empty")
	}
	if c.Timeout < 0 || c.Timeout > 5*time.Minute {
		return fmt.Errorf("config: timeout must be between 0 and 5m, got %s", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: maxRetries must not be negative")
	}
	return nil
}

// applyDefaults fills zero values so callers can construct a sparse Config.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaultCacheTTL
	}
	c.Breaker.applyDefaults()
}

// LoadConfig reads a config file (YAML or JSON), layers TASKSTREAM_* env
// variables on top, validates, and returns the result. A .env file next to
// the process, if present, is loaded first so local development matches CI.
func LoadConfig(path string) (*Config, error) {
	// Missing .env is fine; explicit files are the caller's responsibility.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TASKSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("timeout", defaultTimeout.String())
	v.SetDefault("maxRetries", defaultMaxRetries)
	v.SetDefault("retryBaseDelay", defaultRetryBaseDelay.String())
	v.SetDefault("cacheTTL", defaultCacheTTL.String())
	v.SetDefault("breaker.failureThreshold", defaultFailureThreshold)
	v.SetDefault("breaker.successThreshold", defaultSuccessThreshold)
	v.SetDefault("breaker.openTimeout", defaultOpenTimeout.String())
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}
