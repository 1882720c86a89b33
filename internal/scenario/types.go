// Package scenario runs scripted dialogues against the engine and checks
// each reply.
package scenario

import (
	"time"
)

// Scenario is a scripted dialogue.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Treebank maps token sequences joined by spaces to bracketed trees.
	// When empty the runner's default parser is used.
	Treebank map[string][]string `yaml:"treebank,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one utterance and what it should produce.
type Step struct {
	Say    string      `yaml:"say"`
	Expect Expectation `yaml:"expect,omitempty"`
}

// Expectation lists the checks of a step. Empty fields are not checked.
type Expectation struct {
	// Outcome is an outcome kind such as "statement" or "no_parse".
	Outcome string `yaml:"outcome,omitempty"`
	// Result is compared with the result or problem line.
	Result string `yaml:"result,omitempty"`
	// ContextContains lists substrings of the context summary after the
	// step.
	ContextContains []string `yaml:"context_contains,omitempty"`
	// Error is a substring of the error the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// RunConfig controls how scenarios are executed.
type RunConfig struct {
	Verbose     bool // Print every event, not only results
	NoColor     bool // Disable color output
	StopOnError bool // Stop at the first failing step
}

// StepResult captures the outcome of a single step.
type StepResult struct {
	StepIndex int
	Say       string
	StartTime time.Time
	EndTime   time.Time

	Outcome string
	Result  string
	Context string

	// Failures lists the expectations that did not hold.
	Failures []string
	Error    error
}

// Passed reports whether every expectation held.
func (r StepResult) Passed() bool {
	return len(r.Failures) == 0
}

// ScenarioResult summarizes the full run.
type ScenarioResult struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Steps        []StepResult

	TotalSteps    int
	PassedSteps   int
	FailedSteps   int
	SkippedSteps  int
	TotalDuration time.Duration

	Success bool
	Error   error
}
