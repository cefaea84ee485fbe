// Package environment wipes the benchmark organization between model runs so
// records created by one model cannot affect another model's scores.
package environment

import (
	"context"
	"log"

	"github.com/tidwall/gjson"

	"github.com/signalnine/mcpbench/internal/mcp"
	"github.com/signalnine/mcpbench/internal/tools"
)

type ToolInvoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) mcp.Result
}

// Report counts what Reset removed.
type Report struct {
	OrgID       string
	Projects    int
	Assets      int
	Directories int
}

func (r Report) Deleted() int { return r.Projects + r.Assets + r.Directories }

// Reset deletes every project, orphaned asset and directory in the
// authenticated user's organization. Backend problems are logged as
// warnings and never abort the reset.
func Reset(ctx context.Context, inv ToolInvoker, logger *log.Logger) Report {
	if logger == nil {
		logger = log.Default()
	}
	var rep Report

	user := inv.CallTool(ctx, "get_authenticated_user", map[string]any{})
	if !gjson.Valid(user.Content) {
		logger.Printf("warning: could not determine org_id from user data, cleanup may be incomplete")
	} else {
		rep.OrgID = gjson.Get(user.Content, "organizations.0.id").String()
		if rep.OrgID == "" {
			rep.OrgID = gjson.Get(user.Content, "organization_id").String()
		}
	}
	if rep.OrgID == "" {
		logger.Printf("warning: no org_id found, skipping cleanup")
		return rep
	}

	projects := list(ctx, inv, logger, "list_projects", "projects",
		map[string]any{"organization_id": rep.OrgID, "page_size": 100})
	for _, id := range projects {
		inv.CallTool(ctx, "remove_project", map[string]any{"id": id, "action": "delete"})
	}
	rep.Projects = len(projects)

	assets := list(ctx, inv, logger, "search", "results",
		map[string]any{"query": " ", "result_types": []string{"asset"}, "page_size": 50})
	for _, id := range assets {
		inv.CallTool(ctx, tools.DeleteAsset, map[string]any{"id": id})
	}
	rep.Assets = len(assets)

	dirs := list(ctx, inv, logger, tools.Directory, "directories",
		map[string]any{"action": "list", "organization_id": rep.OrgID})
	for _, id := range dirs {
		inv.CallTool(ctx, tools.Directory, map[string]any{"action": "delete", "id": id, "recursive": true})
	}
	rep.Directories = len(dirs)

	if rep.Deleted() > 0 {
		logger.Printf("Cleanup: deleted %d projects, %d assets, %d directories", rep.Projects, rep.Assets, rep.Directories)
	} else {
		logger.Printf("Cleanup: org already clean")
	}
	return rep
}

// list calls tool and returns the non-empty ids found under key.
func list(ctx context.Context, inv ToolInvoker, logger *log.Logger, tool, key string, args map[string]any) []string {
	res := inv.CallTool(ctx, tool, args)
	if !gjson.Valid(res.Content) {
		logger.Printf("warning: cleanup: %s returned invalid JSON", tool)
		return nil
	}
	if e := gjson.Get(res.Content, "error"); e.Exists() {
		logger.Printf("warning: cleanup: %s failed: %s", tool, e.String())
		return nil
	}
	var ids []string
	gjson.Get(res.Content, key).ForEach(func(_, item gjson.Result) bool {
		if id := item.Get("id").String(); id != "" {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}
