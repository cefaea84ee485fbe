package runner_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalnine/mcpbench/internal/inference"
	"github.com/signalnine/mcpbench/internal/mcp"
	"github.com/signalnine/mcpbench/internal/runner"
	"github.com/signalnine/mcpbench/internal/task"
	"github.com/signalnine/mcpbench/internal/trace"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type step struct {
	reply *inference.Reply
	err   error
	took  time.Duration
}

type fakeModel struct {
	clock    *clock
	steps    []step
	requests []inference.Request
}

func (f *fakeModel) Complete(_ context.Context, req inference.Request) (*inference.Reply, error) {
	msgs := append([]inference.Message(nil), req.Messages...)
	req.Messages = msgs
	f.requests = append(f.requests, req)
	if len(f.steps) == 0 {
		return &inference.Reply{Message: inference.Message{Role: inference.RoleAssistant, Content: "done"}}, nil
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	if f.clock != nil {
		f.clock.Advance(s.took)
	}
	return s.reply, s.err
}

type fakeTools struct {
	calls trace.Trace
}

func (f *fakeTools) CallTool(_ context.Context, name string, args map[string]any) mcp.Result {
	f.calls = append(f.calls, trace.ToolCall{Name: name, Arguments: args})
	return mcp.Result{Content: `{"id":"x-1"}`}
}

func toolReply(calls ...inference.ToolCall) *inference.Reply {
	return &inference.Reply{Message: inference.Message{Role: inference.RoleAssistant, ToolCalls: calls}}
}

func fn(id, name, args string) inference.ToolCall {
	return inference.ToolCall{ID: id, Type: "function", Function: inference.FunctionCall{Name: name, Arguments: args}}
}

var createProject = task.Task{
	ID:     "T-01",
	Name:   "Create project",
	Prompt: "Create a project called Demo",
	Rubric: task.SingleCall{Tool: "create_project", Required: []string{"name"}},
}

func newOrchestrator(m *fakeModel, tools *fakeTools, c *clock) *runner.Orchestrator {
	o := &runner.Orchestrator{Model: m, Tools: tools, Timeout: 300 * time.Second}
	if c != nil {
		o.Now = c.Now
	}
	return o
}

func TestRunTaskEarlyExit(t *testing.T) {
	c := newClock()
	m := &fakeModel{clock: c, steps: []step{
		{reply: toolReply(fn("c1", "create_project", `{"name":"Demo"}`)), took: 1500 * time.Millisecond},
		{reply: toolReply(fn("c2", "ping", `{}`))},
	}}
	tools := &fakeTools{}
	res := newOrchestrator(m, tools, c).RunTask(context.Background(), createProject, "qwen")

	if !res.Passed || res.Score != 1 {
		t.Errorf("got passed=%v score=%v, want true/1", res.Passed, res.Score)
	}
	if res.Turns != 1 || len(m.requests) != 1 {
		t.Errorf("turns: got %d (requests %d), want 1", res.Turns, len(m.requests))
	}
	if len(res.ToolCalls) != 1 || len(tools.calls) != 1 || tools.calls[0].Arguments["name"] != "Demo" {
		t.Errorf("tool calls: got %+v / backend %+v", res.ToolCalls, tools.calls)
	}
	if res.ElapsedS != 1.5 {
		t.Errorf("elapsed: got %v, want 1.5", res.ElapsedS)
	}
	if res.Error != nil || res.TimedOut {
		t.Errorf("unexpected error/timeout: %v %v", res.Error, res.TimedOut)
	}
}

func TestRunTaskRequestShape(t *testing.T) {
	m := &fakeModel{steps: []step{
		{reply: toolReply(fn("c1", "ping", `{"message":"hi"}`), fn("c2", "get_authenticated_user", ""))},
	}}
	tools := &fakeTools{}
	o := newOrchestrator(m, tools, nil)
	o.Catalog = []inference.Tool{{Type: "function", Function: inference.FunctionDef{Name: "ping"}}}
	res := o.RunTask(context.Background(), createProject, "qwen")

	if len(m.requests) != 2 {
		t.Fatalf("requests: got %d, want 2", len(m.requests))
	}
	first := m.requests[0]
	if first.Model != "qwen" || first.ToolChoice != "auto" || first.MaxTokens != 4096 || len(first.Tools) != 1 {
		t.Errorf("request: got %+v", first)
	}
	if first.Messages[0].Role != inference.RoleSystem || !strings.Contains(first.Messages[0].Content, "MUST call") {
		t.Errorf("system prompt missing: %+v", first.Messages[0])
	}
	if first.Messages[1].Content != createProject.Prompt {
		t.Errorf("user prompt: got %q", first.Messages[1].Content)
	}

	second := m.requests[1].Messages
	if len(second) != 5 {
		t.Fatalf("conversation: got %d messages, want 5", len(second))
	}
	if got := second[2].ToolCalls[1].Function.Arguments; got != "{}" {
		t.Errorf("empty arguments should be sent back as {}, got %q", got)
	}
	if second[3].Role != inference.RoleTool || second[3].ToolCallID != "c1" || second[4].ToolCallID != "c2" {
		t.Errorf("tool results out of order: %+v %+v", second[3], second[4])
	}
	if tools.calls[0].Name != "ping" || tools.calls[1].Name != "get_authenticated_user" {
		t.Errorf("backend call order: %+v", tools.calls)
	}
	if res.Turns != 2 || res.Passed {
		t.Errorf("got turns=%d passed=%v, want 2/false", res.Turns, res.Passed)
	}
	if res.Details[0] != "Wrong tool: called 'ping', expected 'create_project'" {
		t.Errorf("details: got %v", res.Details)
	}
}

func TestRunTaskTimeout(t *testing.T) {
	c := newClock()
	m := &fakeModel{clock: c, steps: []step{
		{reply: toolReply(fn("c1", "ping", `{}`)), took: 100 * time.Second},
		{reply: toolReply(fn("c2", "ping", `{}`)), took: 100 * time.Second},
		{reply: toolReply(fn("c3", "ping", `{}`)), took: 110 * time.Second},
	}}
	res := newOrchestrator(m, &fakeTools{}, c).RunTask(context.Background(), createProject, "qwen")

	if !res.TimedOut {
		t.Fatal("expected timed_out")
	}
	if res.Turns != 3 || len(res.ToolCalls) != 3 {
		t.Errorf("got turns=%d calls=%d, want 3/3", res.Turns, len(res.ToolCalls))
	}
	if res.Details[0] != "Task timed out after 300s (3 turns completed)" {
		t.Errorf("details[0]: got %q", res.Details[0])
	}
	if res.Score != 0 || res.Passed {
		t.Errorf("got score=%v passed=%v", res.Score, res.Passed)
	}
}

func TestRunTaskDeadlineInFlight(t *testing.T) {
	o := &runner.Orchestrator{
		Model:   blockingModel{},
		Tools:   &fakeTools{},
		Timeout: 50 * time.Millisecond,
	}
	res := o.RunTask(context.Background(), createProject, "qwen")
	if !res.TimedOut {
		t.Error("a call cut short by the deadline should mark the task timed out")
	}
	if res.Error != nil {
		t.Errorf("unexpected error: %s", *res.Error)
	}
}

type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, _ inference.Request) (*inference.Reply, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunTaskMalformedArguments(t *testing.T) {
	tests := []struct {
		name       string
		repair     bool
		wantPassed bool
	}{
		{"kept raw", false, false},
		{"repaired", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{
				{reply: toolReply(fn("c1", "create_project", `{"name": "Demo"`))},
			}}
			o := newOrchestrator(m, &fakeTools{}, nil)
			o.RepairArguments = tt.repair
			res := o.RunTask(context.Background(), createProject, "qwen")
			if res.Passed != tt.wantPassed {
				t.Errorf("passed: got %v, want %v (details %v)", res.Passed, tt.wantPassed, res.Details)
			}
			args := res.ToolCalls[0].Arguments
			if !tt.repair {
				if args[trace.RawArgumentsKey] != `{"name": "Demo"` {
					t.Errorf("raw placeholder: got %v", args)
				}
			} else if args["name"] != "Demo" {
				t.Errorf("repaired args: got %v", args)
			}
		})
	}
}

func TestRunTaskGeneratesMissingIDs(t *testing.T) {
	m := &fakeModel{steps: []step{
		{reply: toolReply(fn("", "ping", `{}`))},
	}}
	o := newOrchestrator(m, &fakeTools{}, nil)
	o.NewID = func() string { return "generated-1" }
	o.RunTask(context.Background(), createProject, "qwen")

	msgs := m.requests[1].Messages
	if msgs[2].ToolCalls[0].ID != "generated-1" || msgs[3].ToolCallID != "generated-1" {
		t.Errorf("ids: assistant %q tool %q", msgs[2].ToolCalls[0].ID, msgs[3].ToolCallID)
	}
}

func TestRunTaskDefaultIDsAreUnique(t *testing.T) {
	m := &fakeModel{steps: []step{
		{reply: toolReply(fn("", "ping", `{}`), fn("", "ping", `{}`))},
	}}
	newOrchestrator(m, &fakeTools{}, nil).RunTask(context.Background(), createProject, "qwen")
	calls := m.requests[1].Messages[2].ToolCalls
	if calls[0].ID == "" || calls[0].ID == calls[1].ID {
		t.Errorf("ids should be unique and non-empty: %q %q", calls[0].ID, calls[1].ID)
	}
}

func TestRunTaskModelError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("connection refused"), "connection refused"},
		{"context overflow", &inference.HTTPError{StatusCode: 400, Body: "n_keep: 4200 >= n_ctx: 4096"},
			"Context overflow: model's n_ctx is too small for the full tool list."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{steps: []step{
				{reply: toolReply(fn("c1", "ping", `{}`))},
				{err: tt.err},
			}}
			res := newOrchestrator(m, &fakeTools{}, nil).RunTask(context.Background(), createProject, "qwen")
			if res.Error == nil || !strings.Contains(*res.Error, tt.want) {
				t.Fatalf("error: got %v, want %q", res.Error, tt.want)
			}
			if len(res.ToolCalls) != 1 || res.Turns != 1 {
				t.Errorf("partial trace lost: calls=%d turns=%d", len(res.ToolCalls), res.Turns)
			}
			if res.TimedOut {
				t.Error("model error is not a timeout")
			}
		})
	}
}

func TestRunTaskNoToolCalls(t *testing.T) {
	m := &fakeModel{steps: []step{
		{reply: &inference.Reply{Message: inference.Message{Role: inference.RoleAssistant, Content: "I would create it."}}},
	}}
	res := newOrchestrator(m, &fakeTools{}, nil).RunTask(context.Background(), createProject, "qwen")
	if res.Passed || res.Score != 0 || res.Turns != 1 {
		t.Errorf("got %+v", res)
	}
	if res.ToolCalls == nil {
		t.Error("tool_calls should be an empty list, not null")
	}
	if res.Details[0] != "no tool call emitted (model responded with text only)" {
		t.Errorf("details: got %v", res.Details)
	}
}

func TestRunTaskRendersPromptVars(t *testing.T) {
	m := &fakeModel{steps: []step{{reply: &inference.Reply{Message: inference.Message{Role: inference.RoleAssistant, Content: "ok"}}}}}
	o := newOrchestrator(m, &fakeTools{}, nil)
	o.Vars = map[string]string{"project_id": "p-42"}
	tk := task.Task{ID: "T-02", Prompt: "Get project {{project_id}} and {{missing}}", Rubric: task.SingleCall{Tool: "get_project"}}
	o.RunTask(context.Background(), tk, "qwen")

	if got := m.requests[0].Messages[1].Content; got != "Get project p-42 and {{missing}}" {
		t.Errorf("got %q, want rendered prompt", got)
	}
}
