package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/signalnine/mcpbench/internal/result"
)

// ModelRow is one line of the model x level matrix.
type ModelRow struct {
	Model       string                 `json:"model"`
	ToolTrained bool                   `json:"tool_trained"`
	Levels      map[int]result.Summary `json:"levels"`
	// Overall is the mean avg_score over the levels present.
	Overall float64 `json:"overall"`
}

type Matrix struct {
	Levels []int      `json:"levels"`
	Rows   []ModelRow `json:"rows"`
}

// Collect loads the result files of every directory and keeps the newest
// record per (level, model).
func Collect(dirs ...string) ([]*result.Record, error) {
	type key struct {
		level int
		model string
	}
	latest := map[key]*result.Record{}
	for _, dir := range dirs {
		records, err := result.LoadAll(dir)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			k := key{rec.Level, rec.Model}
			if cur, ok := latest[k]; !ok || rec.Timestamp > cur.Timestamp {
				latest[k] = rec
			}
		}
	}
	out := make([]*result.Record, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Model != out[j].Model {
			return out[i].Model < out[j].Model
		}
		return out[i].Level < out[j].Level
	})
	return out, nil
}

// BuildMatrix sorts models by overall score, highest first.
func BuildMatrix(records []*result.Record) Matrix {
	levelSet := map[int]bool{}
	rows := map[string]*ModelRow{}
	for _, rec := range records {
		levelSet[rec.Level] = true
		row, ok := rows[rec.Model]
		if !ok {
			row = &ModelRow{Model: rec.Model, ToolTrained: rec.ToolTrained, Levels: map[int]result.Summary{}}
			rows[rec.Model] = row
		}
		row.Levels[rec.Level] = rec.Summary
	}

	var m Matrix
	for l := range levelSet {
		m.Levels = append(m.Levels, l)
	}
	sort.Ints(m.Levels)
	for _, row := range rows {
		var sum float64
		for _, s := range row.Levels {
			sum += s.AvgScore
		}
		if len(row.Levels) > 0 {
			row.Overall = sum / float64(len(row.Levels))
		}
		m.Rows = append(m.Rows, *row)
	}
	sort.Slice(m.Rows, func(i, j int) bool {
		if m.Rows[i].Overall != m.Rows[j].Overall {
			return m.Rows[i].Overall > m.Rows[j].Overall
		}
		return m.Rows[i].Model < m.Rows[j].Model
	})
	return m
}

// Generate writes a report of the records under dirs in the given format:
// table (default), markdown or json.
func Generate(format string, w io.Writer, dirs ...string) error {
	records, err := Collect(dirs...)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no result files found in %s", strings.Join(dirs, ", "))
	}
	return Write(format, w, records, time.Now())
}

func Write(format string, w io.Writer, records []*result.Record, now time.Time) error {
	m := BuildMatrix(records)
	switch format {
	case "markdown":
		return writeMarkdown(m, records, w, now)
	case "json":
		return writeJSON(m, w)
	default:
		return writeTable(m, w)
	}
}

func pct(v float64) string { return fmt.Sprintf("%.0f%%", v*100) }

func cells(row ModelRow, levels []int, sep string) string {
	parts := make([]string, 0, len(levels)*2)
	for _, l := range levels {
		if s, ok := row.Levels[l]; ok {
			parts = append(parts, pct(s.PassRate), pct(s.AvgScore))
		} else {
			parts = append(parts, "—", "—")
		}
	}
	return strings.Join(parts, sep)
}

func overall(row ModelRow) string {
	if len(row.Levels) == 0 {
		return "—"
	}
	return pct(row.Overall)
}

func writeTable(m Matrix, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"MODEL"}
	for _, l := range m.Levels {
		header = append(header, fmt.Sprintf("L%d PASS%%", l), fmt.Sprintf("L%d SCORE", l))
	}
	header = append(header, "OVERALL")
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, row := range m.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Model, cells(row, m.Levels, "\t"), overall(row))
	}
	return tw.Flush()
}

func writeMarkdown(m Matrix, records []*result.Record, w io.Writer, now time.Time) error {
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "*Generated: %s*\n\n", now.Format("2006-01-02 15:04"))

	header, sep := "| Model |", "|-------|"
	for _, l := range m.Levels {
		header += fmt.Sprintf(" L%d Pass%% | L%d Score |", l, l)
		sep += "---------|---------|"
	}
	fmt.Fprintln(w, header+" Overall |")
	fmt.Fprintln(w, sep+"---------|")
	for _, row := range m.Rows {
		fmt.Fprintf(w, "| %s | %s | **%s** |\n", row.Model, cells(row, m.Levels, " | "), overall(row))
	}

	for _, l := range m.Levels {
		writeBreakdown(w, l, records)
	}
	return nil
}

func writeBreakdown(w io.Writer, level int, records []*result.Record) {
	var levelRecs []*result.Record
	names := map[string]string{}
	var ids []string
	for _, rec := range records {
		if rec.Level != level {
			continue
		}
		levelRecs = append(levelRecs, rec)
		for _, tr := range rec.Results {
			if _, seen := names[tr.TaskID]; !seen {
				names[tr.TaskID] = tr.TaskName
				ids = append(ids, tr.TaskID)
			}
		}
	}
	if len(levelRecs) == 0 {
		return
	}
	sort.Strings(ids)
	sort.Slice(levelRecs, func(i, j int) bool { return levelRecs[i].Model < levelRecs[j].Model })

	fmt.Fprintf(w, "\n### Level %d — Task Breakdown\n\n", level)
	header, sep := "| Task |", "|------|"
	for _, rec := range levelRecs {
		header += " " + truncate(rec.Model[strings.LastIndex(rec.Model, "/")+1:], 20) + " |"
		sep += "--------|"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, sep)

	for _, id := range ids {
		line := fmt.Sprintf("| %s: %s |", id, truncate(names[id], 40))
		for _, rec := range levelRecs {
			cell := "—"
			for _, tr := range rec.Results {
				if tr.TaskID == id {
					icon := "❌"
					if tr.Passed {
						icon = "✅"
					}
					cell = icon + " " + pct(tr.Score)
					break
				}
			}
			line += " " + cell + " |"
		}
		fmt.Fprintln(w, line)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func writeJSON(m Matrix, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
