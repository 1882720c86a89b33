package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"crystal/internal/discourse"
)

var outcomeKinds = map[discourse.OutcomeKind]bool{
	discourse.OutcomeStatement:        true,
	discourse.OutcomeQuestion:         true,
	discourse.OutcomeUntokenizable:    true,
	discourse.OutcomeNoParse:          true,
	discourse.OutcomeNoInterpretation: true,
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

// Parse decodes a scenario document. Every step must say something and
// expected outcomes must be known kinds.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if step.Say == "" {
			return nil, fmt.Errorf("scenario %q: step %d has nothing to say", s.Name, i+1)
		}
		if kind := step.Expect.Outcome; kind != "" && !outcomeKinds[discourse.OutcomeKind(kind)] {
			return nil, fmt.Errorf("scenario %q: step %d expects unknown outcome %q", s.Name, i+1, kind)
		}
	}
	return &s, nil
}

// ListScenarios returns the YAML files directly inside dir, sorted by name.
// Directories are skipped whatever their name.
func ListScenarios(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading scenarios directory: %w", err)
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("reading scenario file: %w", err)
			}
			if !info.IsDir() {
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadAllScenarios loads every scenario in dir. All invalid files are
// reported together.
func LoadAllScenarios(dir string) ([]*Scenario, error) {
	paths, err := ListScenarios(dir)
	if err != nil {
		return nil, err
	}

	var scenarios []*Scenario
	var errs []error
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", path, err))
			continue
		}
		scenarios = append(scenarios, s)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return scenarios, nil
}
