package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rubric kinds as they appear in task files.
const (
	KindToolCallMatch     = "tool_call_match"
	KindMultiToolCall     = "multi_tool_call"
	KindMultiToolSequence = "multi_tool_sequence"
	KindReasoningChain    = "reasoning_chain"
)

type Task struct {
	ID           string
	Name         string
	Prompt       string
	ExpectedTool string
	Rubric       Rubric
}

// Rubric is one of SingleCall, RepeatedCall, OrderedSequence or Unknown.
type Rubric interface {
	Kind() string
	rubric()
}

// ParamCheck pairs an argument name with the value it is checked against.
type ParamCheck struct {
	Param string
	Value any
}

// SingleCall grades the first call of a trace.
type SingleCall struct {
	Tool            string
	Required        []string
	Exact           []ParamCheck
	Contains        []ParamCheck
	Present         []string
	UpdateMaskPaths []string
}

// RepeatedCall grades every call to one tool.
type RepeatedCall struct {
	Tool              string
	MinCount          int
	EachMustHave      []string
	TitlesMustInclude []string
}

type Step struct {
	Tool     string
	Required []string
	Exact    []ParamCheck
	Contains []ParamCheck
	Present  []string
}

// OrderedSequence grades a list of steps, each against the first call to
// its tool anywhere in the trace.
type OrderedSequence struct {
	Name  string
	Steps []Step
}

// Unknown is a rubric kind this build cannot grade. It always fails.
type Unknown struct {
	Name string
}

func (SingleCall) Kind() string        { return KindToolCallMatch }
func (RepeatedCall) Kind() string      { return KindMultiToolCall }
func (s OrderedSequence) Kind() string { return s.Name }
func (u Unknown) Kind() string         { return u.Name }

func (SingleCall) rubric()      {}
func (RepeatedCall) rubric()    {}
func (OrderedSequence) rubric() {}
func (Unknown) rubric()         {}

type fileTasks struct {
	Tasks []fileTask `json:"tasks" yaml:"tasks"`
}

type fileTask struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Prompt       string         `json:"prompt" yaml:"prompt"`
	ExpectedTool string         `json:"expected_tool" yaml:"expected_tool"`
	Validation   fileValidation `json:"validation" yaml:"validation"`
}

type fileValidation struct {
	Type                  string         `json:"type" yaml:"type"`
	Tool                  string         `json:"tool" yaml:"tool"`
	RequiredParams        []string       `json:"required_params" yaml:"required_params"`
	ParamExact            map[string]any `json:"param_exact" yaml:"param_exact"`
	ParamContains         map[string]any `json:"param_contains" yaml:"param_contains"`
	ParamPresent          []string       `json:"param_present" yaml:"param_present"`
	UpdateMaskMustContain []string       `json:"update_mask_must_contain" yaml:"update_mask_must_contain"`
	CallCount             *int           `json:"call_count" yaml:"call_count"`
	EachMustHave          []string       `json:"each_must_have" yaml:"each_must_have"`
	TitlesMustInclude     []string       `json:"titles_must_include" yaml:"titles_must_include"`
	Steps                 []fileStep     `json:"steps" yaml:"steps"`
}

type fileStep struct {
	Tool           string         `json:"tool" yaml:"tool"`
	MustHaveParams []string       `json:"must_have_params" yaml:"must_have_params"`
	ParamExact     map[string]any `json:"param_exact" yaml:"param_exact"`
	ParamContains  map[string]any `json:"param_contains" yaml:"param_contains"`
	ParamPresent   []string       `json:"param_present" yaml:"param_present"`
}

// Load reads a task file. Files ending in .yaml or .yml are decoded as YAML,
// anything else as JSON.
func Load(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tasks %s: %w", path, err)
	}
	var raw fileTasks
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing tasks %s: %w", path, err)
	}
	tasks, err := convert(raw.Tasks)
	if err != nil {
		return nil, fmt.Errorf("invalid tasks %s: %w", path, err)
	}
	return tasks, nil
}

func convert(raw []fileTask) ([]Task, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no tasks defined")
	}
	seen := make(map[string]bool, len(raw))
	tasks := make([]Task, 0, len(raw))
	for i, ft := range raw {
		if ft.ID == "" {
			return nil, fmt.Errorf("task %d: id is required", i)
		}
		if seen[ft.ID] {
			return nil, fmt.Errorf("task %q: duplicate id", ft.ID)
		}
		seen[ft.ID] = true
		if ft.Prompt == "" {
			return nil, fmt.Errorf("task %q: prompt is required", ft.ID)
		}
		name := ft.Name
		if name == "" {
			name = ft.ID
		}
		tasks = append(tasks, Task{
			ID:           ft.ID,
			Name:         name,
			Prompt:       ft.Prompt,
			ExpectedTool: ft.ExpectedTool,
			Rubric:       rubricFor(ft),
		})
	}
	return tasks, nil
}

func rubricFor(ft fileTask) Rubric {
	v := ft.Validation
	kind := v.Type
	if kind == "" {
		kind = KindToolCallMatch
	}
	switch kind {
	case KindToolCallMatch:
		return SingleCall{
			Tool:            ft.ExpectedTool,
			Required:        v.RequiredParams,
			Exact:           checks(v.ParamExact),
			Contains:        checks(v.ParamContains),
			Present:         v.ParamPresent,
			UpdateMaskPaths: v.UpdateMaskMustContain,
		}
	case KindMultiToolCall:
		tool := v.Tool
		if tool == "" {
			tool = ft.ExpectedTool
		}
		minCount := 1
		if v.CallCount != nil {
			minCount = *v.CallCount
		}
		return RepeatedCall{
			Tool:              tool,
			MinCount:          minCount,
			EachMustHave:      v.EachMustHave,
			TitlesMustInclude: v.TitlesMustInclude,
		}
	case KindMultiToolSequence, KindReasoningChain:
		steps := make([]Step, 0, len(v.Steps))
		for _, s := range v.Steps {
			steps = append(steps, Step{
				Tool:     s.Tool,
				Required: s.MustHaveParams,
				Exact:    checks(s.ParamExact),
				Contains: checks(s.ParamContains),
				Present:  s.ParamPresent,
			})
		}
		return OrderedSequence{Name: kind, Steps: steps}
	default:
		return Unknown{Name: kind}
	}
}

// checks flattens a parameter map in key order so grading is deterministic.
func checks(m map[string]any) []ParamCheck {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ParamCheck, 0, len(keys))
	for _, k := range keys {
		out = append(out, ParamCheck{Param: k, Value: m[k]})
	}
	return out
}

// Render replaces {{key}} placeholders in prompt with values from vars.
// Placeholders without a value are left as they are.
func Render(prompt string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(prompt, "{{") {
		return prompt
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(prompt)
}
