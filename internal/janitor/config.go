package janitor

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// Config schedules the maintenance jobs. Schedules are standard five-field
// cron expressions or descriptors such as "@hourly", evaluated in the
// pipeline timezone.
type Config struct {
	Enabled         *bool  `toml:"enabled"`
	PurgeSchedule   string `toml:"purge_schedule"`
	Retention       string `toml:"retention"`
	StaleSchedule   string `toml:"stale_schedule"`
	StaleAfter      string `toml:"stale_after"`
	RefreshSchedule string `toml:"refresh_schedule"`
	CleanupSchedule string `toml:"cleanup_schedule"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled         string
	PurgeSchedule   string
	Retention       string
	StaleSchedule   string
	StaleAfter      string
	RefreshSchedule string
	CleanupSchedule string
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// IsEnabled reports whether the jobs run. Jobs run unless explicitly disabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RetentionDuration parses Retention. Finalize guarantees it is valid.
func (c *Config) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

// StaleAfterDuration parses StaleAfter. Finalize guarantees it is valid.
func (c *Config) StaleAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StaleAfter)
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
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.PurgeSchedule != "" {
		c.PurgeSchedule = overlay.PurgeSchedule
	}
	if overlay.Retention != "" {
		c.Retention = overlay.Retention
	}
	if overlay.StaleSchedule != "" {
		c.StaleSchedule = overlay.StaleSchedule
	}
	if overlay.StaleAfter != "" {
		c.StaleAfter = overlay.StaleAfter
	}
	if overlay.RefreshSchedule != "" {
		c.RefreshSchedule = overlay.RefreshSchedule
	}
	if overlay.CleanupSchedule != "" {
		c.CleanupSchedule = overlay.CleanupSchedule
	}
}

func (c *Config) loadDefaults() {
	if c.PurgeSchedule == "" {
		c.PurgeSchedule = "15 2 * * *"
	}
	if c.Retention == "" {
		c.Retention = "168h"
	}
	if c.StaleSchedule == "" {
		c.StaleSchedule = "@hourly"
	}
	if c.StaleAfter == "" {
		c.StaleAfter = "1h"
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = "0 3 * * *"
	}
	if c.CleanupSchedule == "" {
		c.CleanupSchedule = "30 3 * * *"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = &b
			}
		}
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{env.PurgeSchedule, &c.PurgeSchedule},
		{env.Retention, &c.Retention},
		{env.StaleSchedule, &c.StaleSchedule},
		{env.StaleAfter, &c.StaleAfter},
		{env.RefreshSchedule, &c.RefreshSchedule},
		{env.CleanupSchedule, &c.CleanupSchedule},
	}
	for _, o := range overrides {
		if o.key == "" {
			continue
		}
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) validate() error {
	schedules := map[string]string{
		"purge_schedule":   c.PurgeSchedule,
		"stale_schedule":   c.StaleSchedule,
		"refresh_schedule": c.RefreshSchedule,
		"cleanup_schedule": c.CleanupSchedule,
	}
	for name, spec := range schedules {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if d, err := time.ParseDuration(c.Retention); err != nil || d <= 0 {
		return fmt.Errorf("invalid retention %q", c.Retention)
	}
	if d, err := time.ParseDuration(c.StaleAfter); err != nil || d <= 0 {
		return fmt.Errorf("invalid stale_after %q", c.StaleAfter)
	}
	return nil
}
