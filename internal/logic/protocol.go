// Package logic connects discourse boxes to first-order inference: it renders
// boxes in prover syntax, runs the model finder and theorem prover, and
// interprets their verdicts.
package logic

import (
	"fmt"
	"strings"

	"crystal/internal/drs"
)

// Markers printed by the external tools.
const (
	MaceSuccessMarker   = "Exiting with 1 model."
	MaceFailureMarker   = "Exiting with failure."
	ProverSuccessMarker = "THEOREM PROVED"
	ProverFailureMarker = "SEARCH FAILED"
)

const maceTemplate = `
formulas(assumptions).
  %s.
end_of_list.

assign(domain_size, %d).
clear(print_models).
`

const proverTemplate = `
formulas(assumptions).
  %s.
end_of_list.

formulas(goals).
  %s.
end_of_list.

assign(max_proofs, 1).
clear(auto_denials).
`

// DomainSize is the model size searched for a box: one individual per root
// referent, at least two.
func DomainSize(box *drs.Box) int {
	return max(len(box.Referents()), 2)
}

// ModelProblem renders the model finder input deciding whether box is
// consistent.
func ModelProblem(box *drs.Box) (string, error) {
	formula, err := box.Formulate(true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(maceTemplate, formula, DomainSize(box)), nil
}

// ProofProblem renders the prover input deciding whether theorem follows
// from assumptions. Assumption referents are left unquantified so they act
// as constants; the theorem is rendered without distinctness constraints.
func ProofProblem(assumptions, theorem *drs.Box) (string, error) {
	premises, err := assumptions.FormulateConditions(true)
	if err != nil {
		return "", err
	}
	goal, err := theorem.Formulate(false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(proverTemplate, premises, goal), nil
}

// IntegrationError reports output from an external tool that carries
// neither of the expected markers.
type IntegrationError struct {
	Tool   string
	Output string
	Err    error
}

func (e *IntegrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("could not understand %s output:\n%s", e.Tool, e.Output)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// verdict maps tool output to a boolean using the success and failure
// markers.
func verdict(tool, output, success, failure string) (bool, error) {
	switch {
	case strings.Contains(output, success):
		return true, nil
	case strings.Contains(output, failure):
		return false, nil
	default:
		return false, &IntegrationError{Tool: tool, Output: output}
	}
}
