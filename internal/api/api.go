// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/horarium/internal/config"
	"github.com/JaimeStill/horarium/internal/infrastructure"
	"github.com/JaimeStill/horarium/internal/janitor"
	"github.com/JaimeStill/horarium/pkg/lifecycle"
	"github.com/JaimeStill/horarium/pkg/middleware"
	"github.com/JaimeStill/horarium/pkg/module"
)

// API pairs the HTTP module with the background janitor its domain owns.
type API struct {
	Module  *module.Module
	Janitor *janitor.Janitor
}

// NewModule creates the API module with all domain handlers and middleware.
// Stage handlers are registered on the queue, so it must run before the
// infrastructure starts.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, fmt.Errorf("domain init failed: %w", err)
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, fmt.Errorf("openapi spec: %w", err)
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return &API{
		Module:  m,
		Janitor: domain.Janitor,
	}, nil
}

// Start starts the background systems of the API.
func (a *API) Start(lc *lifecycle.Coordinator) error {
	return a.Janitor.Start(lc)
}
