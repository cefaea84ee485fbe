package result

import (
	"math"

	"github.com/signalnine/mcpbench/internal/trace"
)

// TaskResult is the outcome of one task attempt.
type TaskResult struct {
	TaskID    string      `json:"task_id"`
	TaskName  string      `json:"task_name"`
	Passed    bool        `json:"passed"`
	Score     float64     `json:"score"`
	Details   []string    `json:"details"`
	ToolCalls trace.Trace `json:"tool_calls"`
	Turns     int         `json:"turns"`
	ElapsedS  float64     `json:"elapsed_s"`
	TimedOut  bool        `json:"timed_out"`
	Error     *string     `json:"error"`
}

type Summary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	PassRate float64 `json:"pass_rate"`
	AvgScore float64 `json:"avg_score"`
}

// LevelResult is every task result of one level for one model.
type LevelResult struct {
	Level   int          `json:"level"`
	Summary Summary      `json:"summary"`
	Results []TaskResult `json:"results"`
}

// Record is the persisted form of a LevelResult.
type Record struct {
	Level       int          `json:"level"`
	Model       string       `json:"model"`
	ToolTrained bool         `json:"tool_trained"`
	Timestamp   string       `json:"timestamp"`
	Summary     Summary      `json:"summary"`
	Results     []TaskResult `json:"results"`
}

// Summarize derives the level summary. An empty slice yields all zeros.
func Summarize(results []TaskResult) Summary {
	s := Summary{Total: len(results)}
	if s.Total == 0 {
		return s
	}
	var sum float64
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
		sum += r.Score
	}
	s.PassRate = Round(float64(s.Passed)/float64(s.Total), 3)
	s.AvgScore = Round(sum/float64(s.Total), 3)
	return s
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
