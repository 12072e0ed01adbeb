package api

import (
	"time"

	"github.com/JaimeStill/horarium/internal/config"
	"github.com/JaimeStill/horarium/internal/infrastructure"
	"github.com/JaimeStill/horarium/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Location   *time.Location
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Queue:     infra.Queue,
			Telemetry: infra.Telemetry,
		},
		Pagination: cfg.API.Pagination,
		Location:   cfg.Pipeline.Location(),
	}
}
