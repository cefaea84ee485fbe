package runner

import (
	"context"
	"time"

	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/task"
)

// TaskFunc is called after each task of a level completes.
type TaskFunc func(t task.Task, res result.TaskResult)

// RunLevel runs tasks one after another. Tasks share backend state, so
// they are never run concurrently.
func (o *Orchestrator) RunLevel(ctx context.Context, model string, level int, tasks []task.Task, onTask TaskFunc) result.LevelResult {
	lr := result.LevelResult{Level: level, Results: make([]result.TaskResult, 0, len(tasks))}
	for _, t := range tasks {
		res := o.RunTask(ctx, t, model)
		o.Metrics.Task(model, level, res.Passed, res.TimedOut, res.Turns, time.Duration(res.ElapsedS*float64(time.Second)))
		if onTask != nil {
			onTask(t, res)
		}
		lr.Results = append(lr.Results, res)
	}
	lr.Summary = result.Summarize(lr.Results)
	return lr
}
