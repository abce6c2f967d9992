package infra

import (
	"fmt"
	"os"
	"strings"

	"bitex_go/pkg/bitex"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Environments understood by the config. Custom base URLs bypass them.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

// Config holds every setting of the client and the CLI.
// It is loaded from YAML first; environment variables then override the
// sensitive and deployment-specific fields.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		Bitex struct {
			Env        string `yaml:"env"`      // "production" or "sandbox"
			BaseURL    string `yaml:"base_url"` // overrides Env when set
			APIKey     string `yaml:"api_key"`
			TimeoutSec int    `yaml:"timeout_sec"`
		} `yaml:"bitex"`
	} `yaml:"api"`

	Guard struct {
		RateLimit struct {
			Burst     int     `yaml:"burst"`
			PerSecond float64 `yaml:"per_second"` // 0 disables the limiter
		} `yaml:"rate_limit"`
		CircuitBreaker struct {
			FailureThreshold int `yaml:"failure_threshold"` // 0 disables the breaker
			SuccessThreshold int `yaml:"success_threshold"`
			TimeoutSec       int `yaml:"timeout_sec"`
		} `yaml:"circuit_breaker"`
	} `yaml:"guard"`

	Watch struct {
		IntervalMS int `yaml:"interval_ms"`
	} `yaml:"watch"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "text" or "json"
	} `yaml:"logging"`
}

// envOverrides lists the variables that win over the config file.
type envOverrides struct {
	APIKey   string `env:"API_KEY"`
	BaseURL  string `env:"BASE_URL"`
	Env      string `env:"ENV"`
	LogLevel string `env:"LOG_LEVEL"`
}

// DefaultConfig returns a sandbox configuration with conservative guards.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.API.Bitex.Env = EnvSandbox
	cfg.API.Bitex.TimeoutSec = 10
	cfg.Guard.RateLimit.Burst = 5
	cfg.Guard.RateLimit.PerSecond = 5
	cfg.Guard.CircuitBreaker.FailureThreshold = 5
	cfg.Guard.CircuitBreaker.SuccessThreshold = 2
	cfg.Guard.CircuitBreaker.TimeoutSec = 30
	cfg.Watch.IntervalMS = 2000
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads the YAML file at path on top of DefaultConfig, applies
// BITEX_* environment overrides and validates the result. An empty path
// skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideWithEnv(cfg *Config) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: "BITEX_"}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.API.Bitex.APIKey != "" && o.APIKey == "" {
		// Using fmt instead of slog: the logger is built from this config.
		fmt.Fprintln(os.Stderr, "SECURITY WARNING: API key found in config file, prefer BITEX_API_KEY")
	}

	if o.APIKey != "" {
		cfg.API.Bitex.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		cfg.API.Bitex.BaseURL = o.BaseURL
	}
	if o.Env != "" {
		cfg.API.Bitex.Env = o.Env
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch strings.ToLower(c.API.Bitex.Env) {
	case EnvProduction, EnvSandbox:
	case "":
		if c.API.Bitex.BaseURL == "" {
			return fmt.Errorf("either api.bitex.env or api.bitex.base_url is required")
		}
	default:
		return fmt.Errorf("unknown environment: %s", c.API.Bitex.Env)
	}

	if u := c.API.Bitex.BaseURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("invalid base URL: %s", u)
	}
	if c.API.Bitex.TimeoutSec < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	rl := c.Guard.RateLimit
	if rl.PerSecond < 0 || (rl.PerSecond > 0 && rl.Burst <= 0) {
		return fmt.Errorf("rate limit needs a positive burst when enabled")
	}
	cb := c.Guard.CircuitBreaker
	if cb.FailureThreshold < 0 || (cb.FailureThreshold > 0 && cb.SuccessThreshold <= 0) {
		return fmt.Errorf("circuit breaker needs a positive success threshold when enabled")
	}

	if c.Watch.IntervalMS <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// BaseURL resolves the REST base URL: an explicit base_url wins over env.
func (c *Config) BaseURL() string {
	if c.API.Bitex.BaseURL != "" {
		return c.API.Bitex.BaseURL
	}
	if strings.EqualFold(c.API.Bitex.Env, EnvProduction) {
		return bitex.ProductionURL
	}
	return bitex.SandboxURL
}

// IsProduction reports whether requests go to the production exchange.
func (c *Config) IsProduction() bool {
	return c.BaseURL() == bitex.ProductionURL
}
