package routes

import (
	"net/http"

	"github.com/JaimeStill/horarium/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI optionally
// documents the route; Document generates a minimal operation when it is nil.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
