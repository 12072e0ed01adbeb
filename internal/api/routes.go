package api

import (
	"net/http"

	"github.com/JaimeStill/horarium/internal/config"
	"github.com/JaimeStill/horarium/pkg/openapi"
	"github.com/JaimeStill/horarium/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	storage := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
	)

	groups := []routes.Group{
		domain.Prompts.Handler().Routes(),
		domain.Prunings.Handler().Routes(),
		domain.Parsings.Handler().Routes(),
		domain.Index.Handler().Routes(),
		domain.Scheduling.Handler().Routes(),
		storage.routes(),
	}
	routes.Register(mux, groups...)

	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	routes.Document(spec, groups...)

	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(data))
	return nil
}
