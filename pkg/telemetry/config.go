package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls OTLP export of traces and metrics.
type Config struct {
	Enabled        bool   `toml:"enabled"`
	ServiceName    string `toml:"service_name"`
	Endpoint       string `toml:"endpoint"`
	Insecure       bool   `toml:"insecure"`
	MetricInterval string `toml:"metric_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled        string
	ServiceName    string
	Endpoint       string
	Insecure       string
	MetricInterval string
}

// MetricIntervalDuration parses MetricInterval. Finalize guarantees it is valid.
func (c *Config) MetricIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.MetricInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Booleans are only ever
// switched on by an overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Insecure {
		c.Insecure = true
	}
	if overlay.MetricInterval != "" {
		c.MetricInterval = overlay.MetricInterval
	}
}

func (c *Config) loadDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "horarium"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.MetricInterval == "" {
		c.MetricInterval = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = b
			}
		}
	}
	if env.ServiceName != "" {
		if v := os.Getenv(env.ServiceName); v != "" {
			c.ServiceName = v
		}
	}
	if env.Endpoint != "" {
		if v := os.Getenv(env.Endpoint); v != "" {
			c.Endpoint = v
		}
	}
	if env.Insecure != "" {
		if v := os.Getenv(env.Insecure); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Insecure = b
			}
		}
	}
	if env.MetricInterval != "" {
		if v := os.Getenv(env.MetricInterval); v != "" {
			c.MetricInterval = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.MetricInterval); err != nil {
		return fmt.Errorf("invalid metric_interval: %w", err)
	}
	return nil
}
