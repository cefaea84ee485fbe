package task

import (
	"fmt"
	"path/filepath"
)

// Level is a fixed difficulty tier backed by one task file.
type Level struct {
	Number int
	Name   string
	File   string
}

var Levels = []Level{
	{Number: 0, Name: "Explicit", File: "level0_explicit.json"},
	{Number: 1, Name: "Natural Language", File: "level1_natural.json"},
	{Number: 2, Name: "Reasoning", File: "level2_reasoning.json"},
}

// LevelNumbers lists every level in order.
func LevelNumbers() []int {
	out := make([]int, len(Levels))
	for i, l := range Levels {
		out[i] = l.Number
	}
	return out
}

func LookupLevel(n int) (Level, error) {
	for _, l := range Levels {
		if l.Number == n {
			return l, nil
		}
	}
	return Level{}, fmt.Errorf("unknown level %d", n)
}

// LoadLevel reads the tasks of level n from dir.
func LoadLevel(dir string, n int) ([]Task, error) {
	l, err := LookupLevel(n)
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, l.File))
}
