package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/signalnine/mcpbench/internal/config"
)

type planEntry struct {
	Model config.Model
	Level int
}

// plan splits the model x level grid into work to do and work already
// stored.
type plan struct {
	Run  []planEntry
	Skip []planEntry
}

type modelPlan struct {
	Model  config.Model
	Levels []int
}

func buildPlan(models []config.Model, levels []int, force bool, exists func(model string, level int) bool) plan {
	var p plan
	for _, m := range models {
		for _, l := range levels {
			e := planEntry{Model: m, Level: l}
			if !force && exists(m.ID, l) {
				p.Skip = append(p.Skip, e)
				continue
			}
			p.Run = append(p.Run, e)
		}
	}
	return p
}

// byModel groups the pending entries per model, keeping model order.
func (p plan) byModel() []modelPlan {
	var out []modelPlan
	index := map[string]int{}
	for _, e := range p.Run {
		i, ok := index[e.Model.ID]
		if !ok {
			i = len(out)
			index[e.Model.ID] = i
			out = append(out, modelPlan{Model: e.Model})
		}
		out[i].Levels = append(out[i].Levels, e.Level)
	}
	return out
}

func printPlan(out io.Writer, p plan, counts map[int]int, timeoutS int) {
	fmt.Fprintf(out, "Will run (%d):\n", len(p.Run))
	for _, e := range p.Run {
		fmt.Fprintf(out, "  • L%d %s%s\n", e.Level, e.Model.ID, controlTag(e.Model))
	}
	if len(p.Skip) > 0 {
		fmt.Fprintf(out, "Already done, will skip (%d):\n", len(p.Skip))
		for _, e := range p.Skip {
			fmt.Fprintf(out, "  • L%d %s\n", e.Level, e.Model.ID)
		}
	}
	fmt.Fprintf(out, "Task timeout: %ds\n", timeoutS)
	levels := make([]int, 0, len(counts))
	for l := range counts {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("L%d=%d", l, counts[l])
	}
	fmt.Fprintf(out, "Tasks per level: %s\n", strings.Join(parts, ", "))
}

func controlTag(m config.Model) string {
	if m.ToolTrained {
		return ""
	}
	return " (no tool training)"
}
