package storage_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/horarium/pkg/storage"
)

// Azurite's well-known development account; no network traffic happens in these tests.
const azurite = "DefaultEndpointsProtocol=http;AccountName=horariumstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/horariumstore;"

func archive(t *testing.T) storage.System {
	t.Helper()
	sys, err := storage.New(&storage.Config{ContainerName: "parsings", ConnectionString: azurite}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, sys)
	return sys
}

func TestNewRejectsMalformedConnectionString(t *testing.T) {
	_, err := storage.New(&storage.Config{ContainerName: "parsings", ConnectionString: "not-a-connection-string"}, slog.Default())
	assert.Error(t, err)
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("download archive: %w", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{fmt.Errorf("list: %w", storage.ErrInvalidMaxResults), http.StatusBadRequest},
		{errors.New("container parsings unreachable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, storage.MapHTTPStatus(tt.err), tt.err.Error())
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		in      string
		want    int32
		wantErr bool
	}{
		{"", 100, false},
		{"250", 250, false},
		{"5000", storage.MaxListCap, false},
		{"12000", storage.MaxListCap, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"all", 0, true},
	}

	for _, tt := range tests {
		got, err := storage.ParseMaxResults(tt.in, 100)
		if tt.wantErr {
			assert.ErrorIs(t, err, storage.ErrInvalidMaxResults, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestKeysAreValidatedBeforeAnyRequest(t *testing.T) {
	sys := archive(t)
	ctx := context.Background()

	keys := map[string]error{
		"":                              storage.ErrEmptyKey,
		"parsings/../websites/raw.json": storage.ErrInvalidKey,
		"parsings/..1f2e/raw.json":      storage.ErrInvalidKey,
	}

	for key, want := range keys {
		assert.ErrorIs(t, sys.Upload(ctx, key, bytes.NewReader([]byte("{}")), "application/json"), want, "Upload %q", key)

		_, err := sys.Download(ctx, key)
		assert.ErrorIs(t, err, want, "Download %q", key)

		_, err = sys.Find(ctx, key)
		assert.ErrorIs(t, err, want, "Find %q", key)

		assert.ErrorIs(t, sys.Delete(ctx, key), want, "Delete %q", key)

		_, err = sys.Exists(ctx, key)
		assert.ErrorIs(t, err, want, "Exists %q", key)
	}
}
