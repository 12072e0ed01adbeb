package database_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/horarium/pkg/database"
)

var horariumEnv = &database.Env{
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

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults fill the pool settings", func(t *testing.T) {
		cfg := database.Config{Name: "horarium", User: "horarium"}
		require.NoError(t, cfg.Finalize(nil))

		assert.Equal(t, database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "horarium",
			User:            "horarium",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		}, cfg)
		assert.Equal(t, 15*time.Minute, cfg.ConnMaxLifetimeDuration())
		assert.Equal(t, 5*time.Second, cfg.ConnTimeoutDuration())
	})

	t.Run("environment wins over file values", func(t *testing.T) {
		t.Setenv("HORARIUM_DB_HOST", "pg.horarium.internal")
		t.Setenv("HORARIUM_DB_PORT", "6432")
		t.Setenv("HORARIUM_DB_PASSWORD", "s3cret")
		t.Setenv("HORARIUM_DB_SSL_MODE", "verify-full")
		t.Setenv("HORARIUM_DB_MAX_OPEN_CONNS", "40")
		t.Setenv("HORARIUM_DB_CONN_TIMEOUT", "2s")

		cfg := database.Config{Host: "localhost", Name: "horarium", User: "horarium"}
		require.NoError(t, cfg.Finalize(horariumEnv))

		assert.Equal(t, "pg.horarium.internal", cfg.Host)
		assert.Equal(t, 6432, cfg.Port)
		assert.Equal(t, "s3cret", cfg.Password)
		assert.Equal(t, "verify-full", cfg.SSLMode)
		assert.Equal(t, 40, cfg.MaxOpenConns)
		assert.Equal(t, 5, cfg.MaxIdleConns)
		assert.Equal(t, 2*time.Second, cfg.ConnTimeoutDuration())
	})

	invalid := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{"no database name", database.Config{User: "horarium"}, "name required"},
		{"no user", database.Config{Name: "horarium"}, "user required"},
		{"lifetime not a duration", database.Config{Name: "horarium", User: "horarium", ConnMaxLifetime: "forever"}, "invalid conn_max_lifetime"},
		{"timeout not a duration", database.Config{Name: "horarium", User: "horarium", ConnTimeout: "soon"}, "invalid conn_timeout"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.cfg.Finalize(nil), tt.want)
		})
	}
}

func TestConfigMergeKeepsUnsetFields(t *testing.T) {
	base := database.Config{Host: "localhost", Port: 5432, Name: "horarium", User: "horarium", MaxOpenConns: 25}
	base.Merge(&database.Config{Host: "pg.staging", Name: "horarium_staging"})

	assert.Equal(t, "pg.staging", base.Host)
	assert.Equal(t, "horarium_staging", base.Name)
	assert.Equal(t, 5432, base.Port)
	assert.Equal(t, "horarium", base.User)
	assert.Equal(t, 25, base.MaxOpenConns)
}

func TestConfigDsn(t *testing.T) {
	cfg := database.Config{Host: "db", Port: 5432, Name: "horarium", User: "app", Password: "pw", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 dbname=horarium user=app password=pw sslmode=require", cfg.Dsn())
}
