package scheduling_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/scheduling"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/queue"
	"github.com/JaimeStill/horarium/pkg/routes"
)

type mockSystem struct {
	initFn func(ctx context.Context, websiteID uuid.UUID, opts scheduling.InitOptions) (*scheduling.Scheduling, error)
	findFn func(ctx context.Context, id uuid.UUID) (*scheduling.Scheduling, error)
	listFn func(ctx context.Context, page pagination.PageRequest, filters scheduling.Filters) (*pagination.PageResult[scheduling.Scheduling], error)
}

func (m *mockSystem) Handler() *scheduling.Handler {
	return scheduling.NewHandler(
		m,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func (m *mockSystem) Init(ctx context.Context, websiteID uuid.UUID, opts scheduling.InitOptions) (*scheduling.Scheduling, error) {
	return m.initFn(ctx, websiteID, opts)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*scheduling.Scheduling, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters scheduling.Filters) (*pagination.PageResult[scheduling.Scheduling], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Run(ctx context.Context, task queue.Task) error { return nil }

func (m *mockSystem) Register(q queue.System) {}

func setupMux(sys *mockSystem) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	return mux
}

func TestHandlerInit(t *testing.T) {
	website := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       string
		initErr    error
		wantStatus int
		wantOpts   scheduling.InitOptions
	}{
		{"no body", "/websites/" + website.String() + "/scheduling", "", nil, http.StatusAccepted, scheduling.InitOptions{}},
		{"deindex", "/websites/" + website.String() + "/scheduling", `{"deindex": true}`, nil, http.StatusAccepted, scheduling.InitOptions{Deindex: true}},
		{"invalid id", "/websites/nope/scheduling", "", nil, http.StatusBadRequest, scheduling.InitOptions{}},
		{"invalid body", "/websites/" + website.String() + "/scheduling", `{"deindex":`, nil, http.StatusBadRequest, scheduling.InitOptions{}},
		{"unknown website", "/websites/" + website.String() + "/scheduling", "", scheduling.ErrWebsiteNotFound, http.StatusNotFound, scheduling.InitOptions{}},
		{"duplicate run", "/websites/" + website.String() + "/scheduling", "", scheduling.ErrDuplicateRun, http.StatusConflict, scheduling.InitOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got scheduling.InitOptions
			sys := &mockSystem{
				initFn: func(ctx context.Context, websiteID uuid.UUID, opts scheduling.InitOptions) (*scheduling.Scheduling, error) {
					got = opts
					if tt.initErr != nil {
						return nil, tt.initErr
					}
					return &scheduling.Scheduling{ID: uuid.New(), WebsiteID: websiteID, Status: scheduling.StatusBuilt}, nil
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body))
			setupMux(sys).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got != tt.wantOpts {
				t.Errorf("opts = %+v, want %+v", got, tt.wantOpts)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	website := uuid.New()
	var captured scheduling.Filters
	sys := &mockSystem{
		listFn: func(ctx context.Context, page pagination.PageRequest, filters scheduling.Filters) (*pagination.PageResult[scheduling.Scheduling], error) {
			captured = filters
			result := pagination.NewPageResult([]scheduling.Scheduling{{ID: uuid.New()}}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/schedulings?status=indexed&website_id="+website.String(), nil)
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if captured.Status == nil || *captured.Status != scheduling.StatusIndexed {
		t.Errorf("Status filter = %v, want indexed", captured.Status)
	}
	if captured.WebsiteID == nil || *captured.WebsiteID != website {
		t.Errorf("WebsiteID filter = %v, want %v", captured.WebsiteID, website)
	}

	var result pagination.PageResult[scheduling.Scheduling]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestHandlerSearchRejectsUnknownStatus(t *testing.T) {
	sys := &mockSystem{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/schedulings/search", strings.NewReader(`{"status": "failed"}`))
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerFind(t *testing.T) {
	sys := &mockSystem{
		findFn: func(ctx context.Context, id uuid.UUID) (*scheduling.Scheduling, error) {
			return nil, scheduling.ErrNotFound
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/schedulings/"+uuid.NewString(), nil)
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
