package openapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/horarium/pkg/openapi"
)

func TestNewSpec(t *testing.T) {
	spec := openapi.NewSpec("Horarium API", "1.2.0")
	spec.AddServer("/api")
	spec.SetDescription("schedules")

	if spec.OpenAPI != "3.1.0" {
		t.Errorf("openapi: got %s, want 3.1.0", spec.OpenAPI)
	}
	if spec.Info.Title != "Horarium API" || spec.Info.Version != "1.2.0" {
		t.Errorf("info: got %+v", spec.Info)
	}
	if len(spec.Servers) != 1 || spec.Servers[0].URL != "/api" {
		t.Errorf("servers: got %+v", spec.Servers)
	}
	if spec.Info.Description != "schedules" {
		t.Errorf("description: got %s", spec.Info.Description)
	}
	for _, name := range []string{"BadRequest", "NotFound", "Conflict"} {
		if _, ok := spec.Components.Responses[name]; !ok {
			t.Errorf("missing default response: %s", name)
		}
	}
}

func TestAddOperation(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	get := &openapi.Operation{Summary: "find"}
	post := &openapi.Operation{Summary: "create"}

	spec.AddOperation("/schedulings/{id}", http.MethodGet, get)
	spec.AddOperation("/schedulings/{id}", http.MethodPost, post)
	spec.AddOperation("/schedulings/{id}", http.MethodPatch, &openapi.Operation{})

	item := spec.Paths["/schedulings/{id}"]
	if item == nil {
		t.Fatal("path not registered")
	}
	if item.Get != get || item.Post != post {
		t.Errorf("operations: got get=%v post=%v", item.Get, item.Post)
	}
	if item.Put != nil || item.Delete != nil {
		t.Error("unsupported method should be ignored")
	}
}

func TestRefs(t *testing.T) {
	if got := openapi.SchemaRef("Scheduling").Ref; got != "#/components/schemas/Scheduling" {
		t.Errorf("SchemaRef: got %s", got)
	}
	if got := openapi.ResponseRef("NotFound").Ref; got != "#/components/responses/NotFound" {
		t.Errorf("ResponseRef: got %s", got)
	}

	p := openapi.PathParam("id", "Website ID")
	if p.In != "path" || !p.Required || p.Schema.Format != "uuid" {
		t.Errorf("PathParam: got %+v", p)
	}

	q := openapi.QueryParam("status", "string", "Run status", false)
	if q.In != "query" || q.Required || q.Schema.Type != "string" {
		t.Errorf("QueryParam: got %+v", q)
	}
}

func TestServeSpec(t *testing.T) {
	spec := openapi.NewSpec("Test", "1.0.0")
	spec.AddOperation("/websites/{id}/events", http.MethodGet, &openapi.Operation{
		Responses: map[int]*openapi.Response{200: {Description: "Events"}},
	})
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	rec := httptest.NewRecorder()
	openapi.ServeSpec(data)(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}

	var parsed struct {
		Paths map[string]struct {
			Get struct {
				Responses map[string]any `json:"responses"`
			} `json:"get"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("body unmarshal failed: %v", err)
	}
	if _, ok := parsed.Paths["/websites/{id}/events"].Get.Responses["200"]; !ok {
		t.Errorf("responses not keyed by status code: %s", rec.Body.String())
	}
}

func TestConfig(t *testing.T) {
	cfg := openapi.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Title != "Horarium API" {
		t.Errorf("title: got %s, want Horarium API", cfg.Title)
	}

	t.Setenv("TEST_TITLE", "Custom API")
	env := &openapi.ConfigEnv{Title: "TEST_TITLE"}
	cfg = openapi.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.Title != "Custom API" {
		t.Errorf("title: got %s, want Custom API", cfg.Title)
	}

	base := openapi.Config{Title: "Base", Description: "kept"}
	base.Merge(&openapi.Config{Title: "Overlay"})
	if base.Title != "Overlay" || base.Description != "kept" {
		t.Errorf("merge: got %+v", base)
	}
}
