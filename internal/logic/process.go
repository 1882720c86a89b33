package logic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"crystal/internal/drs"
)

// Runner executes an external command with the given standard input and
// returns its standard output.
type Runner interface {
	Run(ctx context.Context, command, input string) (string, error)
}

// ExecRunner runs commands as local processes. The command string is split
// on whitespace into the program and its arguments. A non-zero exit status is
// not an error: the tools signal their verdict in the output.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, command, input string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return "", fmt.Errorf("run %s: %w", fields[0], err)
	}
	return stdout.String(), nil
}

// Mace4 checks consistency with the mace4 finite model finder.
type Mace4 struct {
	Path   string
	Runner Runner
}

// HasModel reports whether box has a model of size DomainSize(box).
func (m *Mace4) HasModel(ctx context.Context, box *drs.Box) (bool, error) {
	problem, err := ModelProblem(box)
	if err != nil {
		return false, err
	}
	out, err := m.Runner.Run(ctx, m.Path, problem)
	if err != nil {
		return false, &IntegrationError{Tool: "mace4", Err: err}
	}
	return verdict("mace4", out, MaceSuccessMarker, MaceFailureMarker)
}

// Prover9 checks entailment with the prover9 resolution prover.
type Prover9 struct {
	Path   string
	Runner Runner
}

// Prove reports whether theorem follows from assumptions.
func (p *Prover9) Prove(ctx context.Context, assumptions, theorem *drs.Box) (bool, error) {
	problem, err := ProofProblem(assumptions, theorem)
	if err != nil {
		return false, err
	}
	out, err := p.Runner.Run(ctx, p.Path, problem)
	if err != nil {
		return false, &IntegrationError{Tool: "prover9", Err: err}
	}
	return verdict("prover9", out, ProverSuccessMarker, ProverFailureMarker)
}
