package queue

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Transports.
const (
	TransportMemory = "memory"
	TransportSQS    = "sqs"
)

// Config selects the task transport and sizes the worker pool.
type Config struct {
	Transport   string `toml:"transport"`
	Workers     int    `toml:"workers"`
	Buffer      int    `toml:"buffer"`
	TaskTimeout string `toml:"task_timeout"`
	QueueURL    string `toml:"queue_url"`
	Region      string `toml:"region"`
	WaitSeconds int32  `toml:"wait_seconds"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Transport   string
	Workers     string
	Buffer      string
	TaskTimeout string
	QueueURL    string
	Region      string
}

// TaskTimeoutDuration parses TaskTimeout. Finalize guarantees it is valid.
func (c *Config) TaskTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.TaskTimeout)
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

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Transport != "" {
		c.Transport = overlay.Transport
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.Buffer != 0 {
		c.Buffer = overlay.Buffer
	}
	if overlay.TaskTimeout != "" {
		c.TaskTimeout = overlay.TaskTimeout
	}
	if overlay.QueueURL != "" {
		c.QueueURL = overlay.QueueURL
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.WaitSeconds != 0 {
		c.WaitSeconds = overlay.WaitSeconds
	}
}

func (c *Config) loadDefaults() {
	if c.Transport == "" {
		c.Transport = TransportMemory
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.TaskTimeout == "" {
		c.TaskTimeout = "10m"
	}
	if c.WaitSeconds <= 0 {
		c.WaitSeconds = 20
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Transport != "" {
		if v := os.Getenv(env.Transport); v != "" {
			c.Transport = v
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Workers = n
			}
		}
	}
	if env.Buffer != "" {
		if v := os.Getenv(env.Buffer); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.Buffer = n
			}
		}
	}
	if env.TaskTimeout != "" {
		if v := os.Getenv(env.TaskTimeout); v != "" {
			c.TaskTimeout = v
		}
	}
	if env.QueueURL != "" {
		if v := os.Getenv(env.QueueURL); v != "" {
			c.QueueURL = v
		}
	}
	if env.Region != "" {
		if v := os.Getenv(env.Region); v != "" {
			c.Region = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportMemory:
	case TransportSQS:
		if c.QueueURL == "" {
			return fmt.Errorf("queue_url required for sqs transport")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if _, err := time.ParseDuration(c.TaskTimeout); err != nil {
		return fmt.Errorf("invalid task_timeout: %w", err)
	}
	return nil
}
