package scheduling

import "github.com/JaimeStill/horarium/pkg/openapi"

var spec = struct {
	Init   *openapi.Operation
	List   *openapi.Operation
	Search *openapi.Operation
	Find   *openapi.Operation
}{
	Init: &openapi.Operation{
		Summary:     "Start a scheduling run",
		Description: "Captures the website content and queues the prune stage. In-flight runs of the website are cancelled.",
		Tags:        []string{"schedulings"},
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Website ID")},
		RequestBody: &openapi.RequestBody{
			Content: map[string]*openapi.MediaType{
				"application/json": {Schema: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"deindex": {Type: "boolean", Description: "Remove the published run before starting"},
					},
				}},
			},
		},
		Responses: map[int]*openapi.Response{
			202: {Description: "Run created"},
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	List: &openapi.Operation{
		Summary: "List scheduling runs",
		Tags:    []string{"schedulings"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("sort", "string", "Sort fields", false),
			openapi.QueryParam("website_id", "string", "Filter by website", false),
			openapi.QueryParam("status", "string", "Filter by status", false),
		},
		Responses: map[int]*openapi.Response{
			200: {Description: "Paginated runs"},
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search scheduling runs",
		Tags:        []string{"schedulings"},
		RequestBody: openapi.RequestBodyJSON("PageRequest", false),
		Responses: map[int]*openapi.Response{
			200: {Description: "Paginated runs"},
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a scheduling run",
		Tags:       []string{"schedulings"},
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Scheduling ID")},
		Responses: map[int]*openapi.Response{
			200: {Description: "The run"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
}
