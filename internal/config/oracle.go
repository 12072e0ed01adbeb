package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Oracle kinds.
const (
	OracleAgent    = "agent"
	OracleDisabled = "disabled"
)

// OracleConfig selects the parsing oracle and bounds its calls.
type OracleConfig struct {
	Kind             string  `toml:"kind"`
	RatePerSecond    float64 `toml:"rate_per_second"`
	Burst            int     `toml:"burst"`
	BreakerFailures  uint32  `toml:"breaker_failures"`
	BreakerOpenDelay string  `toml:"breaker_open_delay"`
}

// BreakerOpenDelayDuration parses BreakerOpenDelay. Finalize guarantees it is valid.
func (c *OracleConfig) BreakerOpenDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerOpenDelay)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *OracleConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *OracleConfig) Merge(overlay *OracleConfig) {
	if overlay.Kind != "" {
		c.Kind = overlay.Kind
	}
	if overlay.RatePerSecond != 0 {
		c.RatePerSecond = overlay.RatePerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
	if overlay.BreakerFailures != 0 {
		c.BreakerFailures = overlay.BreakerFailures
	}
	if overlay.BreakerOpenDelay != "" {
		c.BreakerOpenDelay = overlay.BreakerOpenDelay
	}
}

func (c *OracleConfig) loadDefaults() {
	if c.Kind == "" {
		c.Kind = OracleAgent
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 1
	}
	if c.Burst <= 0 {
		c.Burst = 2
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenDelay == "" {
		c.BreakerOpenDelay = "1m"
	}
}

func (c *OracleConfig) loadEnv() {
	if v := os.Getenv("HORARIUM_ORACLE_KIND"); v != "" {
		c.Kind = v
	}
	if v := os.Getenv("HORARIUM_ORACLE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("HORARIUM_ORACLE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Burst = n
		}
	}
	if v := os.Getenv("HORARIUM_ORACLE_BREAKER_OPEN_DELAY"); v != "" {
		c.BreakerOpenDelay = v
	}
}

func (c *OracleConfig) validate() error {
	switch c.Kind {
	case OracleAgent, OracleDisabled:
	default:
		return fmt.Errorf("unknown kind %q", c.Kind)
	}
	if _, err := time.ParseDuration(c.BreakerOpenDelay); err != nil {
		return fmt.Errorf("invalid breaker_open_delay: %w", err)
	}
	return nil
}
