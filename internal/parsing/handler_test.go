package parsing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/parsing"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/storage"
)

type mockSystem struct {
	listFn     func(ctx context.Context, page pagination.PageRequest, filters parsing.Filters) (*pagination.PageResult[parsing.Parsing], error)
	findFn     func(ctx context.Context, id uuid.UUID) (*parsing.Parsing, error)
	validateFn func(ctx context.Context, id uuid.UUID) (*parsing.Parsing, error)
	humanFn    func(ctx context.Context, id uuid.UUID, cmd parsing.SetHumanCommand) (*parsing.Parsing, error)
	archiveFn  func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}

func (m *mockSystem) Handler() *parsing.Handler { return newTestHandler(m) }

func (m *mockSystem) Ensure(ctx context.Context, text string, roster parsing.Roster) (*parsing.Parsing, error) {
	return nil, nil
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters parsing.Filters) (*pagination.PageResult[parsing.Parsing], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*parsing.Parsing, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) FindMany(ctx context.Context, ids []uuid.UUID) ([]parsing.Parsing, error) {
	return nil, nil
}

func (m *mockSystem) Validate(ctx context.Context, id uuid.UUID) (*parsing.Parsing, error) {
	return m.validateFn(ctx, id)
}

func (m *mockSystem) SetHumanOutput(ctx context.Context, id uuid.UUID, cmd parsing.SetHumanCommand) (*parsing.Parsing, error) {
	return m.humanFn(ctx, id, cmd)
}

func (m *mockSystem) CleanupModerations(ctx context.Context) (int64, error) { return 0, nil }

func (m *mockSystem) Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	return m.archiveFn(ctx, id)
}

func newTestHandler(sys parsing.System) *parsing.Handler {
	return parsing.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *parsing.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func TestHandlerList(t *testing.T) {
	var captured parsing.Filters
	sys := &mockSystem{
		listFn: func(ctx context.Context, page pagination.PageRequest, filters parsing.Filters) (*pagination.PageResult[parsing.Parsing], error) {
			captured = filters
			result := pagination.NewPageResult([]parsing.Parsing{{ID: uuid.New()}}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/parsings?moderation=llm_error&provider=ollama", nil)
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured.Moderation == nil || *captured.Moderation != parsing.CategoryLLMError {
		t.Errorf("Moderation filter = %v, want %s", captured.Moderation, parsing.CategoryLLMError)
	}
	if captured.Provider == nil || *captured.Provider != "ollama" {
		t.Errorf("Provider filter = %v, want ollama", captured.Provider)
	}
}

func TestHandlerFind(t *testing.T) {
	id := uuid.New()
	sys := &mockSystem{
		findFn: func(ctx context.Context, got uuid.UUID) (*parsing.Parsing, error) {
			if got != id {
				return nil, parsing.ErrNotFound
			}
			return &parsing.Parsing{ID: id, Provider: "ollama"}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/parsings/" + id.String(), http.StatusOK},
		{"not found", "/parsings/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/parsings/nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerValidate(t *testing.T) {
	sys := &mockSystem{
		validateFn: func(ctx context.Context, id uuid.UUID) (*parsing.Parsing, error) {
			return nil, parsing.ErrNoOutput
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/parsings/"+uuid.NewString()+"/validate", nil)
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestHandlerSetHuman(t *testing.T) {
	var captured parsing.SetHumanCommand
	sys := &mockSystem{
		humanFn: func(ctx context.Context, id uuid.UUID, cmd parsing.SetHumanCommand) (*parsing.Parsing, error) {
			captured = cmd
			return &parsing.Parsing{ID: id, HumanOutput: cmd.Output}, nil
		},
	}

	body := `{"output": {"schedules": [{
		"church_id": 0, "is_other_church": false, "is_cancellation": false,
		"date_rule": {"kind": "weekly", "weekdays_iso8601": [6]},
		"start_time": "10:00", "end_time": "12:00"
	}], "possible_by_appointment": true}}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/parsings/"+uuid.NewString()+"/human", strings.NewReader(body))
	setupMux(newTestHandler(sys)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if captured.Output == nil || len(captured.Output.Schedules) != 1 {
		t.Fatalf("captured output = %+v, want one schedule", captured.Output)
	}
	if !captured.Output.PossibleByAppointment {
		t.Error("PossibleByAppointment = false, want true")
	}

	var got parsing.Parsing
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.HumanOutput == nil {
		t.Error("response HumanOutput = nil")
	}

	t.Run("invalid rule rejected at decode", func(t *testing.T) {
		bad := `{"output": {"schedules": [{"church_id": null, "date_rule": {"kind": "weekly", "weekdays_iso8601": [9]}, "start_time": null, "end_time": null}]}}`
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/parsings/"+uuid.NewString()+"/human", strings.NewReader(bad))
		setupMux(newTestHandler(sys)).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestHandlerArchive(t *testing.T) {
	sys := &mockSystem{
		archiveFn: func(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
			if id == uuid.Nil {
				return nil, storage.ErrNotFound
			}
			return io.NopCloser(bytes.NewReader([]byte(`{"response":"{}"}`))), nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/parsings/"+uuid.NewString()+"/archive", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != `{"response":"{}"}` {
		t.Errorf("body = %q", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/parsings/"+uuid.Nil.String()+"/archive", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
