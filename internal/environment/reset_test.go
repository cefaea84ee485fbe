package environment_test

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"

	"github.com/signalnine/mcpbench/internal/environment"
	"github.com/signalnine/mcpbench/internal/mcp"
)

type call struct {
	name string
	args map[string]any
}

type fakeBackend struct {
	responses map[string]string
	calls     []call
}

func (f *fakeBackend) CallTool(_ context.Context, name string, args map[string]any) mcp.Result {
	f.calls = append(f.calls, call{name, args})
	key := name
	if a, ok := args["action"].(string); ok {
		key = name + ":" + a
	}
	if body, ok := f.responses[key]; ok {
		return mcp.Result{Content: body}
	}
	return mcp.Result{Content: `{}`}
}

func (f *fakeBackend) count(key string) int {
	n := 0
	for _, c := range f.calls {
		k := c.name
		if a, ok := c.args["action"].(string); ok {
			k += ":" + a
		}
		if k == key {
			n++
		}
	}
	return n
}

func TestResetDeletesEverything(t *testing.T) {
	f := &fakeBackend{responses: map[string]string{
		"get_authenticated_user": `{"organizations":[{"id":"org-1"}]}`,
		"list_projects":          `{"projects":[{"id":"p1"},{"id":"p2"},{"name":"no id"}]}`,
		"search":                 `{"results":[{"id":"a1"}]}`,
		"directory:list":         `{"directories":[{"id":"d1"},{"id":"d2"}]}`,
	}}
	var buf bytes.Buffer
	rep := environment.Reset(context.Background(), f, log.New(&buf, "", 0))

	if rep.OrgID != "org-1" {
		t.Errorf("org: got %q, want org-1", rep.OrgID)
	}
	if rep.Projects != 2 || rep.Assets != 1 || rep.Directories != 2 {
		t.Errorf("counts: got %+v", rep)
	}
	if got := f.count("remove_project:delete"); got != 2 {
		t.Errorf("remove_project calls: got %d, want 2", got)
	}
	if got := f.count("delete_asset"); got != 1 {
		t.Errorf("delete_asset calls: got %d, want 1", got)
	}
	if got := f.count("directory:delete"); got != 2 {
		t.Errorf("directory delete calls: got %d, want 2", got)
	}
	if !strings.Contains(buf.String(), "deleted 2 projects, 1 assets, 2 directories") {
		t.Errorf("log: got %q", buf.String())
	}
}

func TestResetFallbackOrgAndWarnings(t *testing.T) {
	f := &fakeBackend{responses: map[string]string{
		"get_authenticated_user": `{"organization_id":"org-2"}`,
		"list_projects":          `{"error":"forbidden"}`,
		"search":                 `not json`,
	}}
	var buf bytes.Buffer
	rep := environment.Reset(context.Background(), f, log.New(&buf, "", 0))

	if rep.OrgID != "org-2" {
		t.Errorf("org: got %q, want org-2", rep.OrgID)
	}
	if rep.Deleted() != 0 {
		t.Errorf("deleted: got %d, want 0", rep.Deleted())
	}
	out := buf.String()
	for _, want := range []string{"list_projects failed: forbidden", "search returned invalid JSON", "org already clean"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q in %q", want, out)
		}
	}
}

func TestResetWithoutOrg(t *testing.T) {
	f := &fakeBackend{responses: map[string]string{
		"get_authenticated_user": `{"error":"unauthorized, refresh failed"}`,
	}}
	var buf bytes.Buffer
	rep := environment.Reset(context.Background(), f, log.New(&buf, "", 0))
	if rep.OrgID != "" || len(f.calls) != 1 {
		t.Errorf("expected a single user lookup, got %d calls", len(f.calls))
	}
	if !strings.Contains(buf.String(), "skipping cleanup") {
		t.Errorf("log: got %q", buf.String())
	}
}
