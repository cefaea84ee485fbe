package runner_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/signalnine/mcpbench/internal/lmstudio"
	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/runner"
	"github.com/signalnine/mcpbench/internal/task"
)

type fakeSession struct {
	fakeTools
	initErr error
}

func (s *fakeSession) Initialize(context.Context) error { return s.initErr }

type fakeLoader struct {
	loadErr  error
	loaded   []string
	unloaded []string
}

func (l *fakeLoader) LoadModel(_ context.Context, model string) (*lmstudio.Instance, error) {
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	l.loaded = append(l.loaded, model)
	return &lmstudio.Instance{ID: model + ":1", Model: model, ContextLength: 8192}, nil
}

func (l *fakeLoader) UnloadModel(_ context.Context, id string) {
	l.unloaded = append(l.unloaded, id)
}

type harness struct {
	session  *fakeSession
	loader   *fakeLoader
	resets   int
	saved    []*result.Record
	commits  []int
	existing map[int]bool
	runner   *runner.Runner
}

func newHarness(levels map[int][]task.Task) *harness {
	h := &harness{session: &fakeSession{}, loader: &fakeLoader{}, existing: map[int]bool{}}
	model := &fakeModel{steps: nil}
	h.runner = &runner.Runner{
		Orchestrator: runner.Orchestrator{Model: model},
		NewSession:   func() runner.Session { return h.session },
		Loader:       h.loader,
		Reset:        func(context.Context, runner.ToolInvoker) { h.resets++ },
		Tasks: func(level int) ([]task.Task, error) {
			ts, ok := levels[level]
			if !ok {
				return nil, fmt.Errorf("no tasks for level %d", level)
			}
			return ts, nil
		},
		Exists: func(_ string, level int) bool { return h.existing[level] },
		Save: func(rec *result.Record) (string, error) {
			h.saved = append(h.saved, rec)
			return fmt.Sprintf("level%d.json", rec.Level), nil
		},
		Commit: func(_ string, level int, _ string) error {
			h.commits = append(h.commits, level)
			return nil
		},
	}
	return h
}

var oneTask = []task.Task{createProject}

func TestRunModelRunsPendingLevels(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask, 1: oneTask, 2: oneTask})
	h.existing[1] = true

	mr, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0, 1, 2}, false)
	if err != nil {
		t.Fatalf("RunModel: %v", err)
	}
	if !slices.Equal(mr.Skipped, []int{1}) {
		t.Errorf("skipped: got %v, want [1]", mr.Skipped)
	}
	if len(mr.Levels) != 2 || len(h.saved) != 2 || !slices.Equal(h.commits, []int{0, 2}) {
		t.Errorf("levels=%d saved=%d commits=%v", len(mr.Levels), len(h.saved), h.commits)
	}
	if h.resets != 1 {
		t.Errorf("reset: got %d, want 1", h.resets)
	}
	if !slices.Equal(h.loader.unloaded, []string{"qwen:1"}) {
		t.Errorf("unloaded: got %v", h.loader.unloaded)
	}
	if rec := h.saved[0]; rec.Model != "qwen" || !rec.ToolTrained || rec.Summary.Total != 1 {
		t.Errorf("record: got %+v", rec)
	}
}

func TestRunModelForceRerunsDoneLevels(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask})
	h.existing[0] = true
	mr, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(mr.Levels) != 1 || len(mr.Skipped) != 0 {
		t.Errorf("force should re-run: levels=%d skipped=%v", len(mr.Levels), mr.Skipped)
	}
}

func TestRunModelAllDoneSkipsEverything(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask})
	h.existing[0] = true
	mr, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.loader.loaded) != 0 || h.resets != 0 {
		t.Errorf("a fully done model must not be loaded or reset")
	}
	if !slices.Equal(mr.Skipped, []int{0}) {
		t.Errorf("skipped: got %v", mr.Skipped)
	}
}

func TestRunModelSessionFailure(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask})
	h.session.initErr = errors.New("HTTP 401")
	_, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0}, false)
	if !errors.Is(err, runner.ErrSessionInit) {
		t.Fatalf("got %v, want ErrSessionInit", err)
	}
	if len(h.loader.loaded) != 0 || len(h.saved) != 0 {
		t.Error("nothing should run after a failed handshake")
	}
}

func TestRunModelLoadFailure(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask})
	h.loader.loadErr = errors.New("out of memory")
	_, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0}, false)
	if !errors.Is(err, runner.ErrModelLoad) {
		t.Fatalf("got %v, want ErrModelLoad", err)
	}
	if len(h.loader.unloaded) != 0 {
		t.Error("nothing to unload after a failed load")
	}
}

func TestRunModelLevelFailureIsIsolated(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask, 2: oneTask})
	mr, err := h.runner.RunModel(context.Background(), "qwen", false, []int{0, 1, 2}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, failed := mr.Failed[1]; !failed {
		t.Errorf("level 1 should be recorded as failed: %v", mr.Failed)
	}
	if _, ok := mr.Levels[2]; !ok {
		t.Error("level 2 should still run after level 1 failed")
	}
}

func TestRunModelRecoversPanics(t *testing.T) {
	h := newHarness(map[int][]task.Task{0: oneTask, 1: oneTask})
	h.runner.Save = func(rec *result.Record) (string, error) {
		if rec.Level == 0 {
			panic("disk on fire")
		}
		return "ok.json", nil
	}
	mr, err := h.runner.RunModel(context.Background(), "qwen", true, []int{0, 1}, false)
	if err != nil {
		t.Fatal(err)
	}
	if mr.Failed[0] == nil || len(mr.Levels) != 1 {
		t.Errorf("failed=%v levels=%d", mr.Failed, len(mr.Levels))
	}
	if len(h.loader.unloaded) != 1 {
		t.Error("model must be unloaded after a crashed level")
	}
}
