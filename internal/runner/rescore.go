package runner

import (
	"strings"

	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/task"
	"github.com/signalnine/mcpbench/internal/validation"
)

const timedOutPrefix = "Task timed out after "

// Rescore grades the stored traces of rec against tasks and refreshes the
// summary. Results whose task no longer exists are left untouched. It
// returns how many results changed verdict or score.
func Rescore(rec *result.Record, tasks []task.Task) int {
	byID := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	changed := 0
	for i := range rec.Results {
		r := &rec.Results[i]
		t, ok := byID[r.TaskID]
		if !ok {
			continue
		}
		v := validation.Score(r.ToolCalls, t.Rubric)
		details := v.Details
		if r.TimedOut && len(r.Details) > 0 && strings.HasPrefix(r.Details[0], timedOutPrefix) {
			details = append([]string{r.Details[0]}, details...)
		}
		if v.Passed != r.Passed || v.Score != r.Score {
			changed++
		}
		r.Passed, r.Score, r.Details = v.Passed, v.Score, details
	}
	rec.Summary = result.Summarize(rec.Results)
	return changed
}
