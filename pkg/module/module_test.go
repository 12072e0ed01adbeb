package module_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/horarium/pkg/module"
)

// echoPath writes the path the inner mux saw.
func echoPath(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, r.URL.Path)
}

func apiMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", echoPath)
	mux.HandleFunc("GET /websites/{id}", echoPath)
	mux.HandleFunc("GET /events", echoPath)
	return mux
}

func TestNewRejectsBadPrefix(t *testing.T) {
	for _, prefix := range []string{"", "api", "/api/v1"} {
		assert.Panics(t, func() { module.New(prefix, apiMux()) }, "prefix %q", prefix)
	}

	assert.Equal(t, "/api", module.New("/api", apiMux()).Prefix())
}

func TestServeStripsPrefix(t *testing.T) {
	m := module.New("/api", apiMux())

	tests := []struct {
		path string
		want string
	}{
		{"/api", "/"},
		{"/api/events", "/events"},
		{"/api/websites/3f1c", "/websites/3f1c"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestServeAppliesModuleMiddleware(t *testing.T) {
	m := module.New("/api", apiMux())
	m.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Horarium-Module", "api")
			next.ServeHTTP(w, r)
		})
	})

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, "api", rec.Header().Get("X-Horarium-Module"))
}

func TestRouter(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux()))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"mounted module", "/api/events", http.StatusOK, "/events"},
		{"trailing slash", "/api/events/", http.StatusOK, "/events"},
		{"native fallback", "/healthz", http.StatusOK, "ok"},
		{"unknown prefix", "/scalar", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
