package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/signalnine/mcpbench/internal/inference"
	"github.com/signalnine/mcpbench/internal/lmstudio"
	"github.com/signalnine/mcpbench/internal/mcp"
	"github.com/signalnine/mcpbench/internal/metrics"
	"github.com/signalnine/mcpbench/internal/result"
	"github.com/signalnine/mcpbench/internal/task"
	"github.com/signalnine/mcpbench/internal/trace"
	"github.com/signalnine/mcpbench/internal/validation"
)

const (
	DefaultTaskTimeout = 300 * time.Second
	DefaultMaxTokens   = 4096

	SystemPrompt = "You are a helpful AI assistant with access to the Workunit project management " +
		"platform via MCP tools. When asked to perform an action, you MUST call the appropriate tool; " +
		"do not describe what you would do, actually call it. Use only the tools provided; " +
		"do not invent tool names."
)

// Completer sends one chat turn to the model under test.
type Completer interface {
	Complete(ctx context.Context, req inference.Request) (*inference.Reply, error)
}

// ToolInvoker executes a tool call against the backend. Failures are
// reported inside the result, never as an error.
type ToolInvoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) mcp.Result
}

// Orchestrator drives the model/tool loop for a single task.
type Orchestrator struct {
	Model        Completer
	Tools        ToolInvoker
	Catalog      []inference.Tool
	SystemPrompt string
	Timeout      time.Duration
	MaxTokens    int

	// RepairArguments runs malformed tool arguments through jsonrepair
	// before falling back to the raw placeholder.
	RepairArguments bool
	// Vars fill {{key}} placeholders in task prompts.
	Vars map[string]string

	Now     func() time.Time
	NewID   func() string
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTaskTimeout
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return "call_" + uuid.NewString()
}

// RunTask runs t against model until the model stops calling tools, the
// accumulated trace passes, the task deadline passes or a model call fails.
// It always returns a graded result.
func (o *Orchestrator) RunTask(ctx context.Context, t task.Task, model string) result.TaskResult {
	timeout := o.timeout()
	start := o.now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := o.SystemPrompt
	if prompt == "" {
		prompt = SystemPrompt
	}
	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	messages := []inference.Message{
		{Role: inference.RoleSystem, Content: prompt},
		{Role: inference.RoleUser, Content: task.Render(t.Prompt, o.Vars)},
	}

	var (
		calls    trace.Trace
		turns    int
		timedOut bool
		runErr   error
	)

	for {
		if o.now().Sub(start) > timeout {
			timedOut = true
			break
		}

		reply, err := o.Model.Complete(ctx, inference.Request{
			Model:       model,
			Messages:    messages,
			Tools:       o.Catalog,
			ToolChoice:  "auto",
			Temperature: 0,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
				timedOut = true
			} else {
				runErr = err
			}
			break
		}
		turns++

		msg := reply.Message
		if len(msg.ToolCalls) == 0 {
			messages = append(messages, inference.Message{Role: inference.RoleAssistant, Content: msg.Content})
			break
		}

		turnCalls := make([]inference.ToolCall, 0, len(msg.ToolCalls))
		turnArgs := make([]map[string]any, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			args := o.parseArguments(tc.Function.Arguments)
			id := tc.ID
			if id == "" {
				id = o.newID()
			}
			encoded, err := json.Marshal(args)
			if err != nil {
				encoded = []byte("{}")
			}
			turnCalls = append(turnCalls, inference.ToolCall{
				ID:       id,
				Type:     "function",
				Function: inference.FunctionCall{Name: tc.Function.Name, Arguments: string(encoded)},
			})
			turnArgs = append(turnArgs, args)
			calls = append(calls, trace.ToolCall{Name: tc.Function.Name, Arguments: args})
		}
		messages = append(messages, inference.Message{
			Role:      inference.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: turnCalls,
		})

		for i, tc := range turnCalls {
			res := o.Tools.CallTool(ctx, tc.Function.Name, turnArgs[i])
			o.Metrics.ToolCall(tc.Function.Name, res.IsError)
			messages = append(messages, inference.Message{
				Role:       inference.RoleTool,
				ToolCallID: tc.ID,
				Content:    res.Content,
			})
		}

		if validation.Score(calls, t.Rubric).Passed {
			break
		}
	}

	elapsed := o.now().Sub(start)
	verdict := validation.Score(calls, t.Rubric)
	details := verdict.Details
	if timedOut {
		details = append([]string{fmt.Sprintf(timedOutPrefix+"%ds (%d turns completed)",
			int(timeout.Seconds()), turns)}, details...)
	}

	res := result.TaskResult{
		TaskID:    t.ID,
		TaskName:  t.Name,
		Passed:    verdict.Passed,
		Score:     verdict.Score,
		Details:   details,
		ToolCalls: calls,
		Turns:     turns,
		ElapsedS:  result.Round(elapsed.Seconds(), 2),
		TimedOut:  timedOut,
	}
	if res.ToolCalls == nil {
		res.ToolCalls = trace.Trace{}
	}
	if runErr != nil {
		msg := describeError(runErr)
		res.Error = &msg
		o.logger().Printf("warning: task %s: %s", t.ID, msg)
	}
	return res
}

// parseArguments decodes a tool call's JSON arguments. Malformed input is
// kept under trace.RawArgumentsKey so scoring still sees the call.
func (o *Orchestrator) parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	if args, ok := decodeObject(raw); ok {
		return args
	}
	if o.RepairArguments {
		if fixed, err := jsonrepair.JSONRepair(raw); err == nil {
			if args, ok := decodeObject(fixed); ok {
				return args
			}
		}
	}
	return map[string]any{trace.RawArgumentsKey: raw}
}

func decodeObject(raw string) (map[string]any, bool) {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return nil, false
	}
	return args, true
}

func describeError(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "n_keep") && strings.Contains(msg, "n_ctx") {
		return fmt.Sprintf("Context overflow: model's n_ctx is too small for the full tool list. "+
			"Increase context length to ≥%d. (%s)", lmstudio.DefaultContextLength, msg)
	}
	return msg
}
