// Package tools builds the OpenAI function-calling catalog offered to models
// under test. Each tool's parameter schema is reflected from its argument
// struct so field order, required fields and descriptions stay in one place.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/signalnine/mcpbench/internal/inference"
)

// Server-side tools used for environment cleanup that are not offered to
// models.
const (
	DeleteAsset = "delete_asset"
	Directory   = "directory"
)

// Definition describes one tool exposed to the model.
type Definition struct {
	Name        string
	Description string
	Args        any
}

var definitions = []Definition{
	{"ping", "Test MCP server connectivity", PingArgs{}},
	{"get_authenticated_user", "Get details about the authenticated user", GetAuthenticatedUserArgs{}},
	{"create_project", "Create a project to organize workunits and assets.", CreateProjectArgs{}},
	{"get_project", "Get project details by ID", GetProjectArgs{}},
	{"list_projects", "List projects in an organization", ListProjectsArgs{}},
	{"update_project", "Update a project using field masks", UpdateProjectArgs{}},
	{"remove_project", "Archive or permanently delete a project", RemoveProjectArgs{}},
	{"create_workunit", "Create a workunit (unit of work with problem statement and success criteria)", CreateWorkunitArgs{}},
	{"get_workunit", "Get workunit details by ID", GetWorkunitArgs{}},
	{"update_workunit", "Update a workunit using field masks", UpdateWorkunitArgs{}},
	{"create_task", "Create a task within a workunit", CreateTaskArgs{}},
	{"get_task", "Get task details by ID", GetTaskArgs{}},
	{"update_task", "Update a task using field masks", UpdateTaskArgs{}},
	{"save_context", "Save a context atom (decision, insight, question, attempt, progress) to a workunit", SaveContextArgs{}},
	{"search", "Search across workunits, tasks, and assets", SearchArgs{}},
	{"create_asset", "Create an asset (product, people, knowledge, or system)", CreateAssetArgs{}},
	{"get_asset", "Get asset details by ID", GetAssetArgs{}},
	{"update_asset", "Update an asset using field masks", UpdateAssetArgs{}},
	{"project_asset_link", "Link or unlink an asset to/from a project", ProjectAssetLinkArgs{}},
}

var reflector = &jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
	ExpandedStruct: true,
}

var catalog = sync.OnceValues(func() ([]inference.Tool, error) {
	out := make([]inference.Tool, 0, len(definitions))
	for _, d := range definitions {
		params, err := Parameters(d.Args)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		out = append(out, inference.Tool{
			Type: "function",
			Function: inference.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out, nil
})

// Catalog returns the tool definitions in a stable order. The result is
// built once and shared; callers must not mutate it.
func Catalog() ([]inference.Tool, error) {
	return catalog()
}

// Names lists the tools offered to models.
func Names() []string {
	names := make([]string, len(definitions))
	for i, d := range definitions {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Parameters reflects args into a JSON schema object suitable for the
// "parameters" field of a function tool.
func Parameters(args any) (json.RawMessage, error) {
	s := reflector.Reflect(args)
	s.Version = ""
	s.ID = ""
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return b, nil
}
