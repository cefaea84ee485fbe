package validation

import (
	"fmt"
	"strings"

	"github.com/signalnine/mcpbench/internal/task"
	"github.com/signalnine/mcpbench/internal/trace"
)

// NoToolCall is the only detail reported for an empty trace.
const NoToolCall = "no tool call emitted (model responded with text only)"

const (
	singleCallPassAt   = 0.6
	repeatedCallPassAt = 0.7
	sequencePassAt     = 0.75
	stepCheckmarkAt    = 0.8
)

// Verdict is the outcome of grading one trace against one rubric.
type Verdict struct {
	Passed  bool
	Score   float64
	Details []string
}

// Score grades a trace. It is pure: the same trace and rubric always
// produce the same verdict.
func Score(tr trace.Trace, rubric task.Rubric) Verdict {
	if len(tr) == 0 {
		return Verdict{Details: []string{NoToolCall}}
	}
	switch r := rubric.(type) {
	case task.SingleCall:
		return scoreSingleCall(tr, r)
	case task.RepeatedCall:
		return scoreRepeatedCall(tr, r)
	case task.OrderedSequence:
		return scoreSequence(tr, r)
	case task.Unknown:
		return Verdict{Details: []string{fmt.Sprintf("Unknown validation type %q", r.Name)}}
	default:
		return Verdict{Details: []string{fmt.Sprintf("Unknown validation type %T", rubric)}}
	}
}

func scoreSingleCall(tr trace.Trace, r task.SingleCall) Verdict {
	first := tr[0]
	if first.Name != r.Tool {
		return Verdict{Details: []string{
			fmt.Sprintf("Wrong tool: called '%s', expected '%s'", first.Name, r.Tool),
		}}
	}
	args := first.Arguments
	score := 1.0
	var details []string
	missingRequired := false

	for _, p := range r.Required {
		if _, ok := args[p]; !ok {
			details = append(details, fmt.Sprintf("Missing required param: '%s'", p))
			score -= 0.25
			missingRequired = true
		}
	}
	for _, c := range r.Exact {
		actual := args[c.Param]
		if !equalValues(actual, c.Value) {
			details = append(details, fmt.Sprintf("'%s': expected %s, got %s",
				c.Param, formatValue(normalize(c.Value)), formatValue(normalize(actual))))
			score -= 0.15
		}
	}
	for _, c := range r.Contains {
		actual := args[c.Param]
		if missing, ok := containsValue(actual, c.Value); !ok {
			if len(missing) > 0 {
				details = append(details, fmt.Sprintf("'%s': missing expected items %s",
					c.Param, formatValue(missing)))
			} else {
				details = append(details, fmt.Sprintf("'%s': expected to contain %s, got %s",
					c.Param, formatValue(c.Value), formatValue(actual)))
			}
			score -= 0.15
		}
	}
	for _, p := range r.Present {
		if !presentNonEmpty(args, p) {
			details = append(details, fmt.Sprintf("'%s' should be present but is missing/empty", p))
			score -= 0.10
		}
	}
	if len(r.UpdateMaskPaths) > 0 {
		paths := updateMaskPaths(args)
		for _, p := range r.UpdateMaskPaths {
			if !containsString(paths, p) {
				details = append(details, fmt.Sprintf("update_mask.paths missing '%s'", p))
				score -= 0.10
			}
		}
	}

	score = clamp(score)
	passed := score >= singleCallPassAt && !missingRequired
	if len(details) == 0 {
		details = []string{"All checks passed"}
	}
	return Verdict{Passed: passed, Score: score, Details: details}
}

func scoreRepeatedCall(tr trace.Trace, r task.RepeatedCall) Verdict {
	matching := tr.Matching(r.Tool)
	if len(matching) < r.MinCount {
		return Verdict{
			Score: float64(len(matching)) / float64(r.MinCount) * 0.5,
			Details: []string{
				fmt.Sprintf("Expected %d× %s, got %d", r.MinCount, r.Tool, len(matching)),
			},
		}
	}

	score := 1.0
	var details []string
	for _, c := range matching {
		for _, p := range r.EachMustHave {
			if _, ok := c.Arguments[p]; !ok {
				details = append(details, fmt.Sprintf("Call missing required param '%s'", p))
				score -= 0.1
			}
		}
	}

	titles := make([]string, 0, len(matching))
	for _, c := range matching {
		title, _ := c.Arguments["title"].(string)
		titles = append(titles, strings.ToLower(title))
	}
	for _, want := range r.TitlesMustInclude {
		needle := strings.ToLower(want)
		found := false
		for _, title := range titles {
			if strings.Contains(title, needle) {
				found = true
				break
			}
		}
		if !found {
			details = append(details, fmt.Sprintf("Expected task title not found: '%s'", want))
			score -= 0.15
		}
	}

	score = clamp(score)
	if len(details) == 0 {
		details = []string{fmt.Sprintf("%d/%d calls made correctly", len(matching), r.MinCount)}
	}
	return Verdict{Passed: score >= repeatedCallPassAt, Score: score, Details: details}
}

// scoreSequence grades each step against the first call to its tool anywhere
// in the trace. Step order is not enforced against call order.
func scoreSequence(tr trace.Trace, r task.OrderedSequence) Verdict {
	var details []string
	var total float64
	for i, step := range r.Steps {
		label := fmt.Sprintf("Step %d (%s)", i+1, step.Tool)
		call, ok := tr.First(step.Tool)
		if !ok {
			details = append(details, label+": not called")
			continue
		}
		args := call.Arguments
		stepScore := 1.0

		for _, p := range step.Required {
			if _, ok := args[p]; !ok {
				details = append(details, fmt.Sprintf("%s: missing '%s'", label, p))
				stepScore -= 0.25
			}
		}
		for _, c := range step.Exact {
			actual := args[c.Param]
			if !equalValues(actual, c.Value) {
				details = append(details, fmt.Sprintf("%s: '%s'=%s (want %s)",
					label, c.Param, formatValue(actual), formatValue(c.Value)))
				stepScore -= 0.2
			}
		}
		for _, c := range step.Contains {
			actual := args[c.Param]
			if !stepContains(actual, c.Value) {
				details = append(details, fmt.Sprintf("%s: '%s'=%s (want contains %s)",
					label, c.Param, formatValue(actual), formatValue(c.Value)))
				stepScore -= 0.2
			}
		}
		for _, p := range step.Present {
			if _, ok := args[p]; !ok {
				details = append(details, fmt.Sprintf("%s: '%s' missing", label, p))
				stepScore -= 0.15
			}
		}

		if stepScore < 0 {
			stepScore = 0
		}
		total += stepScore
		if stepScore >= stepCheckmarkAt {
			details = append(details, label+": ✓")
		}
	}

	var score float64
	if len(r.Steps) > 0 {
		score = total / float64(len(r.Steps))
	}
	return Verdict{Passed: score >= sequencePassAt, Score: score, Details: details}
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
