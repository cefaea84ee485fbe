package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

const (
	stampLayout     = "20060102_150405"
	timestampLayout = "2006-01-02T15:04:05.000000"
)

var unsafeChars = regexp.MustCompile(`[^\w\-.]`)

// SafeName makes a model id usable in a file name.
func SafeName(model string) string {
	return unsafeChars.ReplaceAllString(model, "_")
}

// CreateRunDir makes a fresh run directory under baseDir/runs and points
// baseDir/latest at it.
func CreateRunDir(baseDir string, now time.Time) (string, error) {
	runDir := filepath.Join(baseDir, "runs", "run_"+now.Format(stampLayout))
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// LatestRunDir resolves baseDir/latest, creating a run when none exists.
func LatestRunDir(baseDir string, now time.Time) (string, error) {
	target, err := filepath.EvalSymlinks(filepath.Join(baseDir, "latest"))
	if err == nil {
		return target, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("resolving latest run: %w", err)
	}
	return CreateRunDir(baseDir, now)
}

// FileName is the result file name for model and level at now.
func FileName(model string, level int, now time.Time) string {
	return fmt.Sprintf("level%d_%s_%s.json", level, SafeName(model), now.Format(stampLayout))
}

// NewRecord stamps a level result for persistence.
func NewRecord(model string, toolTrained bool, lr LevelResult, now time.Time) *Record {
	return &Record{
		Level:       lr.Level,
		Model:       model,
		ToolTrained: toolTrained,
		Timestamp:   now.Format(timestampLayout),
		Summary:     lr.Summary,
		Results:     lr.Results,
	}
}

// Save writes rec into runDir and returns the file path.
func Save(runDir string, rec *Record, now time.Time) (string, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	path := filepath.Join(runDir, FileName(rec.Model, rec.Level, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing result: %w", err)
	}
	return path, nil
}

// Exists reports whether any run under baseDir, or baseDir itself, already
// holds a result for model at level.
func Exists(baseDir, model string, level int) bool {
	name := fmt.Sprintf("level%d_%s_*.json", level, SafeName(model))
	for _, pattern := range []string{
		filepath.Join(baseDir, name),
		filepath.Join(baseDir, "runs", "*", name),
	} {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return true
		}
	}
	return false
}

// Read loads one result file.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", path, err)
	}
	return &rec, nil
}

// Write overwrites an existing result file in place.
func Write(path string, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Files lists result files directly in dir, sorted by name.
func Files(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "level*_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// LoadAll reads every result file in dir.
func LoadAll(dir string) ([]*Record, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(files))
	for _, f := range files {
		rec, err := Read(f)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
