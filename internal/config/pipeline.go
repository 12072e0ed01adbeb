package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
)

// PipelineConfig holds the scheduling pipeline parameters.
type PipelineConfig struct {
	HolidayZone      string `toml:"holiday_zone"`
	Horizon          int    `toml:"horizon"`
	Lookback         int    `toml:"lookback"`
	DefaultDuration  string `toml:"default_duration"`
	Timezone         string `toml:"timezone"`
	ParseConcurrency int    `toml:"parse_concurrency"`
}

// Zone returns the school-holiday zone. Finalize guarantees it is valid.
func (c *PipelineConfig) Zone() calendar.Zone {
	z, _ := calendar.ParseZone(c.HolidayZone)
	return z
}

// DefaultDurationValue parses DefaultDuration. Finalize guarantees it is valid.
func (c *PipelineConfig) DefaultDurationValue() time.Duration {
	d, _ := time.ParseDuration(c.DefaultDuration)
	return d
}

// Location loads Timezone. Finalize guarantees it is valid.
func (c *PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.HolidayZone != "" {
		c.HolidayZone = overlay.HolidayZone
	}
	if overlay.Horizon != 0 {
		c.Horizon = overlay.Horizon
	}
	if overlay.Lookback != 0 {
		c.Lookback = overlay.Lookback
	}
	if overlay.DefaultDuration != "" {
		c.DefaultDuration = overlay.DefaultDuration
	}
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
	if overlay.ParseConcurrency != 0 {
		c.ParseConcurrency = overlay.ParseConcurrency
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.HolidayZone == "" {
		c.HolidayZone = string(calendar.ZoneC)
	}
	if c.Horizon <= 0 {
		c.Horizon = 300
	}
	if c.Lookback <= 0 {
		c.Lookback = 28
	}
	if c.DefaultDuration == "" {
		c.DefaultDuration = "4h"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Paris"
	}
	if c.ParseConcurrency <= 0 {
		c.ParseConcurrency = 4
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv("HORARIUM_PIPELINE_HOLIDAY_ZONE"); v != "" {
		c.HolidayZone = v
	}
	if v := os.Getenv("HORARIUM_PIPELINE_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Horizon = n
		}
	}
	if v := os.Getenv("HORARIUM_PIPELINE_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("HORARIUM_PIPELINE_PARSE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ParseConcurrency = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if _, err := calendar.ParseZone(c.HolidayZone); err != nil {
		return fmt.Errorf("holiday_zone: %w", err)
	}
	if c.Lookback > 28 {
		return fmt.Errorf("lookback %d exceeds 28 years", c.Lookback)
	}
	if d, err := time.ParseDuration(c.DefaultDuration); err != nil || d <= 0 {
		return fmt.Errorf("invalid default_duration %q", c.DefaultDuration)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}
