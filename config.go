package dateprobe

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/always-cache/date-probe/classify"
	"github.com/always-cache/date-probe/clock"
	"github.com/always-cache/date-probe/probe"
)

type Config struct {
	Timeout      time.Duration     `yaml:"timeout"`
	Retries      int               `yaml:"retries"`
	Backoff      time.Duration     `yaml:"backoff"`
	Tolerance    time.Duration     `yaml:"tolerance"`
	FastRatio    float64           `yaml:"fastRatio"`
	Concurrency  int               `yaml:"concurrency"`
	UserAgent    string            `yaml:"userAgent"`
	Headers      map[string]string `yaml:"headers"`
	HTTP2        bool              `yaml:"http2"`
	Insecure     bool              `yaml:"insecure"`
	MaxBodyBytes int64             `yaml:"maxBodyBytes"`
	Targets      []string          `yaml:"targets"`
	Plan         Plan              `yaml:"plan"`
	// Store is where session results are saved, "sqlite:<path>" or
	// "leveldb:<path>". Empty disables saving.
	Store string `yaml:"store"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:      probe.DefaultTimeout,
		Retries:      2,
		Backoff:      time.Second,
		Tolerance:    classify.DefaultTolerance,
		FastRatio:    classify.DefaultFastRatio,
		Concurrency:  4,
		UserAgent:    probe.DefaultUserAgent,
		MaxBodyBytes: probe.DefaultMaxBodyBytes,
		Plan:         DefaultPlan(),
	}
}

// LoadConfig reads a YAML config file over the defaults and validates it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all values, naming the offending field in the error.
func (c *Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return configError("timeout", fmt.Errorf("must be positive, got %s", c.Timeout))
	case c.Retries < 0:
		return configError("retries", fmt.Errorf("must not be negative, got %d", c.Retries))
	case c.Backoff < 0:
		return configError("backoff", fmt.Errorf("must not be negative, got %s", c.Backoff))
	case c.Tolerance <= 0:
		return configError("tolerance", fmt.Errorf("must be positive, got %s", c.Tolerance))
	case c.FastRatio <= 0 || c.FastRatio > 1:
		return configError("fastRatio", fmt.Errorf("must be in (0, 1], got %v", c.FastRatio))
	case c.Concurrency < 1:
		return configError("concurrency", fmt.Errorf("must be at least 1, got %d", c.Concurrency))
	case c.MaxBodyBytes < 0:
		return configError("maxBodyBytes", fmt.Errorf("must not be negative, got %d", c.MaxBodyBytes))
	}
	for i, target := range c.Targets {
		if err := probe.ValidateURL(target); err != nil {
			return &probe.ConfigError{Kind: probe.InvalidURL, Field: fmt.Sprintf("targets[%d]", i), Err: err}
		}
	}
	if c.Store != "" && !strings.HasPrefix(c.Store, "sqlite:") && !strings.HasPrefix(c.Store, "leveldb:") {
		return configError("store", fmt.Errorf("unknown store %q", c.Store))
	}
	return c.Plan.Validate()
}

func configError(field string, err error) error {
	return &probe.ConfigError{Kind: probe.InvalidConfig, Field: field, Err: err}
}

// ProberConfig turns the configuration into the settings of a Prober.
func (c *Config) ProberConfig(clk clock.Clock, logger *zerolog.Logger) ProberConfig {
	header := make(map[string][]string, len(c.Headers))
	for name, value := range c.Headers {
		header[name] = []string{value}
	}
	return ProberConfig{
		Client: probe.ClientConfig{
			Timeout:      c.Timeout,
			MaxBodyBytes: c.MaxBodyBytes,
			UserAgent:    c.UserAgent,
			Header:       header,
			HTTP2:        c.HTTP2,
			Insecure:     c.Insecure,
			Clock:        clk,
			Logger:       logger,
		},
		Classify: classify.Options{Tolerance: c.Tolerance, FastRatio: c.FastRatio},
		Retries:  c.Retries,
		Backoff:  c.Backoff,
		Clock:    clk,
		Logger:   logger,
	}
}
