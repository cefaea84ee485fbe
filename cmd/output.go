package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/signalnine/mcpbench/internal/result"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// confirm asks for a typed "yes" on in. Anything else, including EOF,
// declines.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s\nType 'yes' to continue: ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func taskIcon(res result.TaskResult) string {
	switch {
	case res.Error != nil:
		return red("💥")
	case res.Passed:
		return green("✅")
	default:
		return red("❌")
	}
}

// formatTask renders one finished task and, for failures, its first two
// scoring details.
func formatTask(res result.TaskResult) string {
	var b strings.Builder
	extra := fmt.Sprintf("%.1fs", res.ElapsedS)
	if res.Turns > 1 {
		extra += fmt.Sprintf(", %dt", res.Turns)
	}
	if res.TimedOut {
		extra += ", ⏱"
	}
	fmt.Fprintf(&b, "    %s %s [%3.0f%%] %s %s\n", taskIcon(res), res.TaskID, res.Score*100, res.TaskName, gray("("+extra+")"))
	if !res.Passed || res.Error != nil {
		details := res.Details
		if len(details) > 2 {
			details = details[:2]
		}
		for _, d := range details {
			fmt.Fprintf(&b, "       %s\n", gray(d))
		}
		if res.Error != nil {
			fmt.Fprintf(&b, "       %s\n", red(*res.Error))
		}
	}
	return b.String()
}

func formatLevel(lr result.LevelResult) string {
	s := lr.Summary
	return fmt.Sprintf("  → Level %d: %d/%d passed (%.0f%% pass rate, %.0f%% avg score)\n",
		lr.Level, s.Passed, s.Total, s.PassRate*100, s.AvgScore*100)
}
