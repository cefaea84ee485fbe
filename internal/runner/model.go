package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/signalnine/mcpbench/internal/lmstudio"
	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/task"
)

var (
	ErrSessionInit = errors.New("backend session initialization failed")
	ErrModelLoad   = errors.New("model load failed")
)

// Session is a backend connection owned by one model run.
type Session interface {
	ToolInvoker
	Initialize(ctx context.Context) error
}

// ModelLoader makes a model available to the inference endpoint.
type ModelLoader interface {
	LoadModel(ctx context.Context, model string) (*lmstudio.Instance, error)
	UnloadModel(ctx context.Context, instanceID string)
}

// Runner runs every pending level of a model. Each model gets a fresh
// session and a freshly reset backend.
type Runner struct {
	// Orchestrator is copied per model with Tools set to the model's session.
	Orchestrator Orchestrator

	NewSession func() Session
	Loader     ModelLoader
	// Prepare runs before the session is opened, e.g. to recreate a local
	// backend container. Optional.
	Prepare func(ctx context.Context) error
	// Reset wipes backend state using the model's session. Optional.
	Reset func(ctx context.Context, tools ToolInvoker)
	// Tasks loads the tasks of a level.
	Tasks func(level int) ([]task.Task, error)
	// Exists reports whether a level already has a stored result.
	Exists func(model string, level int) bool
	// Save persists a level result and returns where it was written.
	Save func(rec *result.Record) (string, error)
	// Commit records a saved result in version control. Optional.
	Commit func(model string, level int, path string) error

	OnTask  func(model string, level int, t task.Task, res result.TaskResult)
	OnLevel func(model string, lr result.LevelResult, path string)

	Now    func() time.Time
	Logger *log.Logger
}

// ModelResult collects the levels run for one model.
type ModelResult struct {
	Model       string
	ToolTrained bool
	Levels      map[int]result.LevelResult
	// Skipped lists levels that already had results.
	Skipped []int
	// Failed maps levels that crashed to the reason.
	Failed map[int]error
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Pending splits levels into those that still need running and those that
// already have results.
func (r *Runner) Pending(model string, levels []int, force bool) (pending, done []int) {
	for _, l := range levels {
		if !force && r.Exists != nil && r.Exists(model, l) {
			done = append(done, l)
			continue
		}
		pending = append(pending, l)
	}
	return pending, done
}

// RunModel runs the pending levels of model. It returns ErrSessionInit or
// ErrModelLoad when the model could not be started at all; a failing level
// is recorded in ModelResult.Failed and the remaining levels still run.
func (r *Runner) RunModel(ctx context.Context, model string, toolTrained bool, levels []int, force bool) (*ModelResult, error) {
	mr := &ModelResult{
		Model:       model,
		ToolTrained: toolTrained,
		Levels:      map[int]result.LevelResult{},
		Failed:      map[int]error{},
	}
	pending, done := r.Pending(model, levels, force)
	mr.Skipped = done
	if len(pending) == 0 {
		return mr, nil
	}

	if r.Prepare != nil {
		if err := r.Prepare(ctx); err != nil {
			return mr, fmt.Errorf("%w: preparing backend: %v", ErrSessionInit, err)
		}
	}
	session := r.NewSession()
	if err := session.Initialize(ctx); err != nil {
		return mr, fmt.Errorf("%w: %v", ErrSessionInit, err)
	}
	if r.Reset != nil {
		r.Reset(ctx, session)
	}

	inst, err := r.Loader.LoadModel(ctx, model)
	if err != nil {
		return mr, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	r.logger().Printf("model loaded: instance %s, ctx=%d", inst.ID, inst.ContextLength)
	defer r.Loader.UnloadModel(context.WithoutCancel(ctx), inst.ID)

	orch := r.Orchestrator
	orch.Tools = session
	for _, level := range pending {
		if err := ctx.Err(); err != nil {
			return mr, err
		}
		lr, path, err := r.runLevel(ctx, &orch, model, toolTrained, level)
		if err != nil {
			r.logger().Printf("warning: level %d crashed for %s: %v", level, model, err)
			mr.Failed[level] = err
			continue
		}
		mr.Levels[level] = lr
		if r.OnLevel != nil {
			r.OnLevel(model, lr, path)
		}
	}
	return mr, nil
}

func (r *Runner) runLevel(ctx context.Context, orch *Orchestrator, model string, toolTrained bool, level int) (lr result.LevelResult, path string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	tasks, err := r.Tasks(level)
	if err != nil {
		return lr, "", fmt.Errorf("loading tasks: %w", err)
	}
	var onTask TaskFunc
	if r.OnTask != nil {
		onTask = func(t task.Task, res result.TaskResult) { r.OnTask(model, level, t, res) }
	}
	lr = orch.RunLevel(ctx, model, level, tasks, onTask)

	if r.Save != nil {
		path, err = r.Save(result.NewRecord(model, toolTrained, lr, r.now()))
		if err != nil {
			return lr, "", fmt.Errorf("saving result: %w", err)
		}
		if r.Commit != nil {
			if err := r.Commit(model, level, path); err != nil {
				r.logger().Printf("warning: committing level %d result: %v", level, err)
			}
		}
	}
	return lr, path, nil
}
