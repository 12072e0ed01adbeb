package handlers_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/horarium/pkg/handlers"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.RespondJSON(rec, http.StatusCreated, struct {
		Website string `json:"website"`
		Status  string `json:"status"`
	}{"Paroisse Saint-Roch", "built"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"website":"Paroisse Saint-Roch","status":"built"}`, rec.Body.String())
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusConflict, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logs bytes.Buffer
			rec := httptest.NewRecorder()
			handlers.RespondError(rec, slog.New(slog.NewTextHandler(&logs, nil)), tt.status, errors.New("run superseded"))

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"error":"run superseded"}`, rec.Body.String())
			assert.Contains(t, logs.String(), tt.wantLevel)
		})
	}
}
