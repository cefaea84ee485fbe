package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Model is one line of a models file.
type Model struct {
	ID          string
	ToolTrained bool
	Comment     string
}

// LoadModels reads a models file: one model id per line, blank lines and
// lines starting with # ignored, anything after # is a comment. A comment
// containing "no tool training" marks the model as a control.
func LoadModels(path string) ([]Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading models %s: %w", path, err)
	}
	defer f.Close()

	var models []Model
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, comment, _ := strings.Cut(line, "#")
		comment = strings.TrimSpace(comment)
		models = append(models, Model{
			ID:          strings.TrimSpace(id),
			ToolTrained: !strings.Contains(strings.ToLower(comment), "no tool training"),
			Comment:     comment,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading models %s: %w", path, err)
	}
	return models, nil
}

// LookupModel returns id with its tool-trained flag from the models file at
// path. Unknown models, or a missing file, count as tool-trained.
func LookupModel(path, id string) Model {
	models, err := LoadModels(path)
	if err == nil {
		for _, m := range models {
			if m.ID == id {
				return m
			}
		}
	}
	return Model{ID: id, ToolTrained: true}
}
