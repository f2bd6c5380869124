package checklist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const tasksFileName = "tasks.yaml"

// Definition is a task identity plus display text. The set is fixed for the
// lifetime of the process; completion state lives in the registry/store.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type tasksFile struct {
	Tasks []Definition `yaml:"tasks"`
}

// DefaultDefinitions returns the built-in daily mission checklist.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: "ten-free-throws", Title: "Ten Free Throws", Description: "Make ten free throws before anything else."},
		{ID: "output-before-input", Title: "Output Before Input", Description: "Create something before consuming anything."},
		{ID: "out-and-back", Title: "Out and Back", Description: "Get outside; walk or run out and back."},
		{ID: "wall-drawing", Title: "Wall Drawing", Description: "Add to the wall drawing."},
		{ID: "read-before-bed", Title: "Read Before Bed", Description: "Read something on paper before sleep."},
	}
}

// LoadDefinitions returns the task set for a store dir: tasks.yaml when
// present, otherwise the built-in defaults.
func LoadDefinitions(dir string) ([]Definition, error) {
	b, err := os.ReadFile(filepath.Join(dir, tasksFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDefinitions(), nil
		}
		return nil, err
	}
	var f tasksFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", tasksFileName, err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("%s: no tasks defined", tasksFileName)
	}
	seen := map[string]bool{}
	for i := range f.Tasks {
		d := &f.Tasks[i]
		d.ID = strings.TrimSpace(d.ID)
		d.Title = strings.TrimSpace(d.Title)
		if d.ID == "" {
			return nil, fmt.Errorf("%s: task %d: missing id", tasksFileName, i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%s: duplicate task id %q", tasksFileName, d.ID)
		}
		seen[d.ID] = true
		if d.Title == "" {
			d.Title = d.ID
		}
	}
	return f.Tasks, nil
}
