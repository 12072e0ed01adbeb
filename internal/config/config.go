package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/horarium/internal/janitor"
	"github.com/JaimeStill/horarium/pkg/database"
	"github.com/JaimeStill/horarium/pkg/queue"
	"github.com/JaimeStill/horarium/pkg/storage"
	"github.com/JaimeStill/horarium/pkg/telemetry"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvHorariumEnv             = "HORARIUM_ENV"
	EnvHorariumShutdownTimeout = "HORARIUM_SHUTDOWN_TIMEOUT"
	EnvHorariumVersion         = "HORARIUM_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "HORARIUM_DB_HOST",
	Port:            "HORARIUM_DB_PORT",
	Name:            "HORARIUM_DB_NAME",
	User:            "HORARIUM_DB_USER",
	Password:        "HORARIUM_DB_PASSWORD",
	SSLMode:         "HORARIUM_DB_SSL_MODE",
	MaxOpenConns:    "HORARIUM_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "HORARIUM_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "HORARIUM_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "HORARIUM_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "HORARIUM_STORAGE_CONTAINER_NAME",
	ConnectionString: "HORARIUM_STORAGE_CONNECTION_STRING",
	ServiceURL:       "HORARIUM_STORAGE_SERVICE_URL",
	MaxListSize:      "HORARIUM_STORAGE_MAX_LIST_SIZE",
}

var queueEnv = &queue.Env{
	Transport:   "HORARIUM_QUEUE_TRANSPORT",
	Workers:     "HORARIUM_QUEUE_WORKERS",
	Buffer:      "HORARIUM_QUEUE_BUFFER",
	TaskTimeout: "HORARIUM_QUEUE_TASK_TIMEOUT",
	QueueURL:    "HORARIUM_QUEUE_URL",
	Region:      "HORARIUM_QUEUE_REGION",
}

var janitorEnv = &janitor.Env{
	Enabled:         "HORARIUM_JANITOR_ENABLED",
	PurgeSchedule:   "HORARIUM_JANITOR_PURGE_SCHEDULE",
	Retention:       "HORARIUM_JANITOR_RETENTION",
	StaleSchedule:   "HORARIUM_JANITOR_STALE_SCHEDULE",
	StaleAfter:      "HORARIUM_JANITOR_STALE_AFTER",
	RefreshSchedule: "HORARIUM_JANITOR_REFRESH_SCHEDULE",
	CleanupSchedule: "HORARIUM_JANITOR_CLEANUP_SCHEDULE",
}

var telemetryEnv = &telemetry.Env{
	Enabled:        "HORARIUM_TELEMETRY_ENABLED",
	ServiceName:    "HORARIUM_TELEMETRY_SERVICE_NAME",
	Endpoint:       "HORARIUM_TELEMETRY_ENDPOINT",
	Insecure:       "HORARIUM_TELEMETRY_INSECURE",
	MetricInterval: "HORARIUM_TELEMETRY_METRIC_INTERVAL",
}

// Config is the root configuration for the Horarium service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Oracle          OracleConfig         `toml:"oracle"`
	Pipeline        PipelineConfig       `toml:"pipeline"`
	Queue           queue.Config         `toml:"queue"`
	Janitor         janitor.Config       `toml:"janitor"`
	Telemetry       telemetry.Config     `toml:"telemetry"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the HORARIUM_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvHorariumEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Oracle.Merge(&overlay.Oracle)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Queue.Merge(&overlay.Queue)
	c.Janitor.Merge(&overlay.Janitor)
	c.Telemetry.Merge(&overlay.Telemetry)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Oracle.Finalize(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if c.Oracle.Kind == OracleAgent {
		if err := FinalizeAgent(&c.Agent); err != nil {
			return fmt.Errorf("agent: %w", err)
		}
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Queue.Finalize(queueEnv); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Janitor.Finalize(janitorEnv); err != nil {
		return fmt.Errorf("janitor: %w", err)
	}
	if err := c.Telemetry.Finalize(telemetryEnv); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvHorariumShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvHorariumVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvHorariumEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
