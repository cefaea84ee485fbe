package tools_test

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/signalnine/mcpbench/internal/tools"
)

type schema struct {
	Schema               string                     `json:"$schema"`
	Type                 string                     `json:"type"`
	Required             []string                   `json:"required"`
	Properties           map[string]json.RawMessage `json:"properties"`
	AdditionalProperties *bool                      `json:"additionalProperties"`
}

func decode(t *testing.T, raw json.RawMessage) schema {
	t.Helper()
	var s schema
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decoding schema: %v", err)
	}
	return s
}

func TestCatalogShape(t *testing.T) {
	cat, err := tools.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(cat) != 19 {
		t.Fatalf("got %d tools, want 19", len(cat))
	}
	seen := map[string]bool{}
	for _, tool := range cat {
		if tool.Type != "function" {
			t.Errorf("%s: type %q, want function", tool.Function.Name, tool.Type)
		}
		if seen[tool.Function.Name] {
			t.Errorf("duplicate tool %s", tool.Function.Name)
		}
		seen[tool.Function.Name] = true
		if tool.Function.Description == "" {
			t.Errorf("%s: empty description", tool.Function.Name)
		}
		s := decode(t, tool.Function.Parameters)
		if s.Schema != "" {
			t.Errorf("%s: $schema should be stripped, got %q", tool.Function.Name, s.Schema)
		}
		if s.Type != "object" {
			t.Errorf("%s: type %q, want object", tool.Function.Name, s.Type)
		}
	}
	for _, name := range []string{tools.DeleteAsset, tools.Directory} {
		if seen[name] {
			t.Errorf("%s must not be offered to models", name)
		}
	}
}

func TestCatalogRequired(t *testing.T) {
	tests := []struct {
		tool string
		want []string
	}{
		{"ping", nil},
		{"create_project", []string{"name"}},
		{"list_projects", []string{"organization_id"}},
		{"update_project", []string{"id", "update_mask"}},
		{"remove_project", []string{"id", "action"}},
		{"create_workunit", []string{"name", "problem_statement", "success_criteria"}},
		{"create_task", []string{"workunit_id", "title"}},
		{"save_context", []string{"workunit_id", "atom_type", "title", "content"}},
		{"search", []string{"query"}},
		{"create_asset", []string{"asset_type", "name"}},
		{"update_asset", []string{"id", "asset_type", "update_mask"}},
		{"project_asset_link", []string{"project_id", "asset_id", "action"}},
	}
	cat, err := tools.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]json.RawMessage{}
	for _, tool := range cat {
		byName[tool.Function.Name] = tool.Function.Parameters
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			raw, ok := byName[tt.tool]
			if !ok {
				t.Fatalf("tool %s not in catalog", tt.tool)
			}
			got := decode(t, raw).Required
			if !slices.Equal(got, tt.want) {
				t.Errorf("required = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParametersNested(t *testing.T) {
	raw, err := tools.Parameters(tools.UpdateTaskArgs{})
	if err != nil {
		t.Fatal(err)
	}
	s := decode(t, raw)
	if s.AdditionalProperties == nil || *s.AdditionalProperties {
		t.Errorf("additionalProperties should be false")
	}
	mask := decode(t, s.Properties["update_mask"])
	if !slices.Equal(mask.Required, []string{"paths"}) {
		t.Errorf("update_mask required = %v, want [paths]", mask.Required)
	}
	var hours struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(s.Properties["estimated_hours"], &hours); err != nil {
		t.Fatal(err)
	}
	if hours.Type != "number" {
		t.Errorf("estimated_hours type = %q, want number", hours.Type)
	}
}

func TestParametersNullable(t *testing.T) {
	raw, err := tools.Parameters(tools.UpdateAssetArgs{})
	if err != nil {
		t.Fatal(err)
	}
	s := decode(t, raw)
	var name struct {
		OneOf []struct {
			Type string `json:"type"`
		} `json:"oneOf"`
	}
	if err := json.Unmarshal(s.Properties["name"], &name); err != nil {
		t.Fatal(err)
	}
	var types []string
	for _, o := range name.OneOf {
		types = append(types, o.Type)
	}
	if !slices.Equal(types, []string{"string", "null"}) {
		t.Errorf("name oneOf types = %v, want [string null]", types)
	}
}

func TestLookup(t *testing.T) {
	d, ok := tools.Lookup("create_task")
	if !ok {
		t.Fatal("create_task not found")
	}
	if _, isArgs := d.Args.(tools.CreateTaskArgs); !isArgs {
		t.Errorf("Args = %T, want CreateTaskArgs", d.Args)
	}
	if _, ok := tools.Lookup("nope"); ok {
		t.Error("unexpected lookup hit")
	}
	if got := len(tools.Names()); got != 19 {
		t.Errorf("Names() = %d entries, want 19", got)
	}
}
