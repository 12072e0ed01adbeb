package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/config"
	"github.com/JaimeStill/horarium/pkg/queue"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "horarium"
user = "horarium"
password = "horarium"
ssl_mode = "disable"

[storage]
container_name = "prunings"
connection_string = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

[api]
base_path = "/api"

[api.pagination]
default_page_size = 25
max_page_size = 50

[agent]
name = "test-agent"

[pipeline]
holiday_zone = "A"
horizon = 120
timezone = "Europe/Paris"

[queue]
transport = "memory"
workers = 2
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[oracle]
kind = "disabled"
`

const minimalConfig = `
[database]
name = "horarium"
user = "horarium"

[storage]
connection_string = "conn"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func load(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := load(t, map[string]string{"config.toml": baseConfig})

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.Storage.ContainerName != "prunings" {
		t.Errorf("storage container: got %s, want prunings", cfg.Storage.ContainerName)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.Pipeline.Zone() != calendar.ZoneA {
		t.Errorf("holiday zone: got %s, want A", cfg.Pipeline.Zone())
	}
	if cfg.Pipeline.Horizon != 120 {
		t.Errorf("horizon: got %d, want 120", cfg.Pipeline.Horizon)
	}
	if cfg.Queue.Workers != 2 {
		t.Errorf("queue workers: got %d, want 2", cfg.Queue.Workers)
	}
	if cfg.Agent.Name != "test-agent" {
		t.Errorf("agent name: got %s, want test-agent", cfg.Agent.Name)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv("HORARIUM_ENV", "staging")
	cfg := load(t, map[string]string{
		"config.toml":         baseConfig,
		"config.staging.toml": overlayConfig,
	})

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if cfg.Oracle.Kind != config.OracleDisabled {
		t.Errorf("oracle kind: got %s, want disabled (from overlay)", cfg.Oracle.Kind)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	t.Setenv("HORARIUM_VERSION", "2.0.0")
	t.Setenv("HORARIUM_SERVER_PORT", "3000")
	t.Setenv("HORARIUM_PIPELINE_TIMEZONE", "America/Martinique")
	t.Setenv("HORARIUM_QUEUE_WORKERS", "8")

	cfg := load(t, map[string]string{"config.toml": baseConfig})

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if got := cfg.Pipeline.Location().String(); got != "America/Martinique" {
		t.Errorf("location: got %s, want America/Martinique", got)
	}
	if cfg.Queue.Workers != 8 {
		t.Errorf("queue workers: got %d, want 8", cfg.Queue.Workers)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Setenv("HORARIUM_DB_NAME", "testdb")
	t.Setenv("HORARIUM_DB_USER", "testuser")
	t.Setenv("HORARIUM_STORAGE_CONNECTION_STRING", "conn")

	cfg := load(t, nil)

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Storage.ConnectionString != "conn" {
		t.Errorf("storage conn from env: got %s, want conn", cfg.Storage.ConnectionString)
	}
}

func TestDefaults(t *testing.T) {
	cfg := load(t, map[string]string{"config.toml": minimalConfig})

	if cfg.API.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default_page_size: got %d, want 20", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.API.Pagination.MaxPageSize != 100 {
		t.Errorf("pagination max_page_size: got %d, want 100", cfg.API.Pagination.MaxPageSize)
	}
	if cfg.Oracle.Kind != config.OracleAgent {
		t.Errorf("oracle kind: got %s, want agent", cfg.Oracle.Kind)
	}
	if cfg.Agent.Name != "default-agent" {
		t.Errorf("agent name: got %s, want default-agent", cfg.Agent.Name)
	}
	if cfg.Pipeline.Zone() != calendar.ZoneC {
		t.Errorf("holiday zone: got %s, want C", cfg.Pipeline.Zone())
	}
	if cfg.Pipeline.Horizon != 300 {
		t.Errorf("horizon: got %d, want 300", cfg.Pipeline.Horizon)
	}
	if cfg.Pipeline.Lookback != 28 {
		t.Errorf("lookback: got %d, want 28", cfg.Pipeline.Lookback)
	}
	if d := cfg.Pipeline.DefaultDurationValue(); d != 4*time.Hour {
		t.Errorf("default duration: got %v, want 4h", d)
	}
	if d := cfg.Oracle.BreakerOpenDelayDuration(); d != time.Minute {
		t.Errorf("breaker open delay: got %v, want 1m", d)
	}
	if cfg.Queue.Transport != queue.TransportMemory {
		t.Errorf("queue transport: got %s, want memory", cfg.Queue.Transport)
	}
	if !cfg.Janitor.IsEnabled() {
		t.Error("janitor should be enabled by default")
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should be disabled by default")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `[server`)
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestEnv(t *testing.T) {
	cfg := load(t, map[string]string{"config.toml": baseConfig})
	if cfg.Env() != "local" {
		t.Errorf("env: got %s, want local", cfg.Env())
	}

	t.Setenv("HORARIUM_ENV", "production")
	if cfg.Env() != "production" {
		t.Errorf("env: got %s, want production", cfg.Env())
	}
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := load(t, map[string]string{"config.toml": baseConfig})

	if d := cfg.ShutdownTimeoutDuration(); d != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", d)
	}
	if addr := cfg.Server.Addr(); addr != "0.0.0.0:8080" {
		t.Errorf("addr: got %s, want 0.0.0.0:8080", addr)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"invalid port", "[server]\nport = 99999\n", "invalid port"},
		{"unknown oracle", "[oracle]\nkind = \"crystal-ball\"\n", "oracle"},
		{"unknown holiday zone", "[pipeline]\nholiday_zone = \"D\"\n", "holiday_zone"},
		{"lookback too long", "[pipeline]\nlookback = 40\n", "lookback"},
		{"bad timezone", "[pipeline]\ntimezone = \"Mars/Olympus\"\n", "timezone"},
		{"sqs without url", "[queue]\ntransport = \"sqs\"\n", "queue_url"},
		{"bad janitor schedule", "[janitor]\npurge_schedule = \"every day\"\n", "janitor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", minimalConfig+"\n"+tt.extra)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestAgentEnvOverrides(t *testing.T) {
	t.Setenv("HORARIUM_AGENT_PROVIDER_NAME", "azure")
	t.Setenv("HORARIUM_AGENT_BASE_URL", "https://myendpoint.openai.azure.com")
	t.Setenv("HORARIUM_AGENT_MODEL_NAME", "gpt-5-mini")
	t.Setenv("HORARIUM_AGENT_TOKEN", "test-token")
	t.Setenv("HORARIUM_AGENT_DEPLOYMENT", "gpt-5-mini")

	cfg := load(t, map[string]string{"config.toml": baseConfig})

	if cfg.Agent.Provider.Name != "azure" {
		t.Errorf("provider name: got %s, want azure", cfg.Agent.Provider.Name)
	}
	if cfg.Agent.Provider.BaseURL != "https://myendpoint.openai.azure.com" {
		t.Errorf("provider base_url: got %s", cfg.Agent.Provider.BaseURL)
	}
	if cfg.Agent.Model.Name != "gpt-5-mini" {
		t.Errorf("model name: got %s, want gpt-5-mini", cfg.Agent.Model.Name)
	}

	opts := cfg.Agent.Provider.Options
	if opts["token"] != "test-token" {
		t.Errorf("token: got %v, want test-token", opts["token"])
	}
	if opts["deployment"] != "gpt-5-mini" {
		t.Errorf("deployment: got %v, want gpt-5-mini", opts["deployment"])
	}
}

func TestAgentSkippedWhenOracleDisabled(t *testing.T) {
	t.Setenv("HORARIUM_ORACLE_KIND", "disabled")
	cfg := load(t, map[string]string{"config.toml": minimalConfig})

	if cfg.Agent.Provider != nil {
		t.Errorf("agent provider: got %+v, want nil when oracle is disabled", cfg.Agent.Provider)
	}
}
