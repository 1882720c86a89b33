package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"crystal/internal/discourse"
	"crystal/internal/parse"
	"crystal/internal/session"
)

// EngineFactory builds the processor for one scenario. oracle is nil when
// the scenario brings no treebank and the default parser should be used.
type EngineFactory func(oracle parse.Oracle) (session.Processor, error)

// Runner executes dialogue scenarios.
type Runner struct {
	config    RunConfig
	newEngine EngineFactory
	output    io.Writer
}

// NewRunner creates a new scenario runner.
func NewRunner(config RunConfig, newEngine EngineFactory) *Runner {
	return &Runner{
		config:    config,
		newEngine: newEngine,
		output:    os.Stdout,
	}
}

// SetOutput sets the output writer (for testing).
func (r *Runner) SetOutput(w io.Writer) {
	r.output = w
}

// Run plays a scenario in a fresh session and returns results. The error is
// non-nil only when the scenario could not be started.
func (r *Runner) Run(ctx context.Context, scenario *Scenario) (*ScenarioResult, error) {
	result := &ScenarioResult{
		ScenarioName: scenario.Name,
		StartTime:    time.Now(),
		TotalSteps:   len(scenario.Steps),
	}

	r.printHeader(scenario)

	var oracle parse.Oracle
	if len(scenario.Treebank) > 0 {
		tb, err := parse.NewTreebank(scenario.Treebank)
		if err != nil {
			result.Error = fmt.Errorf("scenario treebank: %w", err)
			result.EndTime = time.Now()
			return result, result.Error
		}
		oracle = tb
	}
	engine, err := r.newEngine(oracle)
	if err != nil {
		result.Error = fmt.Errorf("failed to create engine: %w", err)
		result.EndTime = time.Now()
		return result, result.Error
	}

	conversation := session.NewSession("")
	for i, step := range scenario.Steps {
		stepResult := r.runStep(ctx, conversation, engine, i, step)
		result.Steps = append(result.Steps, stepResult)

		if stepResult.Passed() {
			result.PassedSteps++
			continue
		}
		result.FailedSteps++
		if r.config.StopOnError {
			result.SkippedSteps = len(scenario.Steps) - i - 1
			r.printf("\n%s Stopping on error\n", r.icon("error"))
			break
		}
	}

	result.EndTime = time.Now()
	result.TotalDuration = result.EndTime.Sub(result.StartTime)
	result.Success = result.FailedSteps == 0

	r.printSummary(result)
	return result, nil
}

// RunAll runs every scenario and reports whether all of them passed.
func (r *Runner) RunAll(ctx context.Context, scenarios []*Scenario) ([]*ScenarioResult, bool) {
	ok := true
	results := make([]*ScenarioResult, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := r.Run(ctx, s)
		if err != nil {
			r.printf("%s %s: %v\n", r.icon("error"), s.Name, err)
		}
		ok = ok && err == nil && res.Success
		results = append(results, res)
	}
	return results, ok
}

func (r *Runner) runStep(ctx context.Context, conversation *session.Session, engine session.Processor, index int, step Step) StepResult {
	result := StepResult{
		StepIndex: index,
		Say:       step.Say,
		StartTime: time.Now(),
	}

	r.printf("%s Step %d: %s\n", r.icon("step"), index+1, step.Say)

	out, err := conversation.Say(ctx, engine, step.Say, func(ev discourse.Event) {
		switch ev.Kind {
		case discourse.EventResult:
			r.printf("  %s %s\n", r.icon("result"), ev.Text)
		case discourse.EventProblem:
			r.printf("  %s %s\n", r.icon("warn"), ev.Text)
		case discourse.EventComment:
			if r.config.Verbose {
				for _, line := range strings.Split(ev.Text, "\n") {
					r.printf("    %s\n", line)
				}
			}
		case discourse.EventContext:
			if r.config.Verbose {
				r.printf("  %s %s\n", r.icon("context"), ev.Context.Summary())
			}
		}
	})
	result.EndTime = time.Now()
	result.Context = conversation.GetContext().Summary()

	if err != nil {
		result.Error = err
		if step.Expect.Error == "" || !strings.Contains(err.Error(), step.Expect.Error) {
			result.Failures = append(result.Failures, fmt.Sprintf("unexpected error: %v", err))
		}
	} else {
		result.Outcome = string(out.Kind)
		result.Result = out.Text
		result.Failures = check(step.Expect, result)
	}

	if result.Passed() {
		r.printf("  %s passed\n", r.icon("check"))
	}
	for _, f := range result.Failures {
		r.printf("  %s %s\n", r.icon("error"), f)
	}
	return result
}

// check compares a successful step with its expectations.
func check(expect Expectation, got StepResult) []string {
	var failures []string
	if expect.Error != "" {
		failures = append(failures, fmt.Sprintf("expected error containing %q, got outcome %s", expect.Error, got.Outcome))
	}
	if expect.Outcome != "" && expect.Outcome != got.Outcome {
		failures = append(failures, fmt.Sprintf("expected outcome %s, got %s", expect.Outcome, got.Outcome))
	}
	if expect.Result != "" && expect.Result != got.Result {
		failures = append(failures, fmt.Sprintf("expected result %q, got %q", expect.Result, got.Result))
	}
	for _, want := range expect.ContextContains {
		if !strings.Contains(got.Context, want) {
			failures = append(failures, fmt.Sprintf("context %s does not contain %q", got.Context, want))
		}
	}
	return failures
}

// Output helpers

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}

func (r *Runner) printHeader(scenario *Scenario) {
	r.printf("\n%s\n", strings.Repeat("=", 60))
	r.printf("%s %s\n", r.icon("scenario"), scenario.Name)
	if scenario.Description != "" {
		r.printf("   %s\n", scenario.Description)
	}
	r.printf("%s\n", strings.Repeat("=", 60))
}

func (r *Runner) printSummary(result *ScenarioResult) {
	r.printf("\n%s\n", strings.Repeat("-", 60))
	r.printf("%s Summary\n", r.icon("summary"))
	r.printf("   Duration: %s\n", result.TotalDuration.Round(time.Millisecond))
	r.printf("   Steps:    %d total, %d passed, %d failed, %d skipped\n",
		result.TotalSteps, result.PassedSteps, result.FailedSteps, result.SkippedSteps)

	if result.Success {
		r.printf("   Result:   %s PASSED\n", r.icon("check"))
	} else {
		r.printf("   Result:   %s FAILED\n", r.icon("error"))
	}
	r.printf("%s\n\n", strings.Repeat("-", 60))
}

func (r *Runner) icon(name string) string {
	if r.config.NoColor {
		return iconPlain[name]
	}
	return iconColor[name]
}

var iconColor = map[string]string{
	"scenario": "\033[1;36m>\033[0m",
	"step":     "\033[1;33m->\033[0m",
	"result":   "\033[1;35m<=\033[0m",
	"context":  "\033[1;34m[C]\033[0m",
	"check":    "\033[1;32m[OK]\033[0m",
	"error":    "\033[1;31m[ERR]\033[0m",
	"warn":     "\033[1;33m[WARN]\033[0m",
	"summary":  "\033[1;36m[SUM]\033[0m",
}

var iconPlain = map[string]string{
	"scenario": ">",
	"step":     "->",
	"result":   "<=",
	"context":  "[C]",
	"check":    "[OK]",
	"error":    "[ERR]",
	"warn":     "[WARN]",
	"summary":  "[SUM]",
}
