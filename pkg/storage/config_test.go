package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/horarium/pkg/storage"
)

var horariumStorage = &storage.Env{
	ContainerName:    "HORARIUM_STORAGE_CONTAINER_NAME",
	ConnectionString: "HORARIUM_STORAGE_CONNECTION_STRING",
	ServiceURL:       "HORARIUM_STORAGE_SERVICE_URL",
	MaxListSize:      "HORARIUM_STORAGE_MAX_LIST_SIZE",
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: azurite}
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, "horarium", cfg.ContainerName)
		assert.EqualValues(t, 50, cfg.MaxListSize)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("HORARIUM_STORAGE_CONTAINER_NAME", "parsings")
		t.Setenv("HORARIUM_STORAGE_SERVICE_URL", "https://horarium.blob.core.windows.net/")
		t.Setenv("HORARIUM_STORAGE_MAX_LIST_SIZE", "90000")

		var cfg storage.Config
		require.NoError(t, cfg.Finalize(horariumStorage))
		assert.Equal(t, "parsings", cfg.ContainerName)
		assert.Equal(t, "https://horarium.blob.core.windows.net/", cfg.ServiceURL)
		assert.Equal(t, storage.MaxListCap, cfg.MaxListSize)
	})

	t.Run("no endpoint", func(t *testing.T) {
		var cfg storage.Config
		assert.ErrorContains(t, cfg.Finalize(nil), "connection_string or service_url required")
	})
}

func TestConfigMergeKeepsUnsetFields(t *testing.T) {
	cfg := storage.Config{ContainerName: "horarium", ConnectionString: azurite, MaxListSize: 50}
	cfg.Merge(&storage.Config{ServiceURL: "https://horarium.blob.core.windows.net/", MaxListSize: 200})

	assert.Equal(t, "horarium", cfg.ContainerName)
	assert.Equal(t, azurite, cfg.ConnectionString)
	assert.Equal(t, "https://horarium.blob.core.windows.net/", cfg.ServiceURL)
	assert.EqualValues(t, 200, cfg.MaxListSize)
}
