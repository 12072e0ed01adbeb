package routes

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/JaimeStill/horarium/pkg/openapi"
)

var pathParam = regexp.MustCompile(`\{([a-zA-Z_]+)(?:\.\.\.)?\}`)

// Document adds an operation for every route of groups to spec. Paths are
// relative to the server URL of the spec.
func Document(spec *openapi.Spec, groups ...Group) {
	for _, group := range groups {
		documentGroup(spec, "", group)
	}
}

func documentGroup(spec *openapi.Spec, parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		path := pathParam.ReplaceAllString(fullPrefix+route.Pattern, "{$1}")
		if path == "" {
			path = "/"
		}
		spec.AddOperation(path, route.Method, operation(route, fullPrefix, path))
	}
	for _, child := range group.Children {
		documentGroup(spec, fullPrefix, child)
	}
}

func operation(route Route, prefix, path string) *openapi.Operation {
	var op openapi.Operation
	if route.OpenAPI != nil {
		op = *route.OpenAPI
	} else {
		op.Summary = route.Method + " " + path
	}

	if len(op.Tags) == 0 {
		if tag := strings.Trim(prefix, "/"); tag != "" {
			op.Tags = []string{tag}
		}
	}

	if len(op.Parameters) == 0 {
		for _, m := range pathParam.FindAllStringSubmatch(route.Pattern, -1) {
			op.Parameters = append(op.Parameters, &openapi.Parameter{
				Name:     m[1],
				In:       "path",
				Required: true,
				Schema:   &openapi.Schema{Type: "string"},
			})
		}
	}

	if len(op.Responses) == 0 {
		op.Responses = map[int]*openapi.Response{
			http.StatusOK: {Description: "Success"},
		}
	}

	return &op
}
