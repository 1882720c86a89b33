package semantics

import (
	"errors"
	"fmt"
)

// ErrUnimplemented marks a rule or combination the evaluator has no meaning
// for. The candidate tree is skipped.
var ErrUnimplemented = errors.New("semantics not implemented")

// EvaluationError reports that a tree could not be given a meaning. It only
// disqualifies the tree being evaluated.
type EvaluationError struct {
	Rule string
	Msg  string
	Err  error
}

func (e *EvaluationError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Rule == "" {
		return "evaluation failed: " + msg
	}
	return fmt.Sprintf("evaluation failed at rule %s: %s", e.Rule, msg)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

func unimplemented(rule, what string) error {
	return &EvaluationError{Rule: rule, Msg: what, Err: ErrUnimplemented}
}

func failf(rule, format string, args ...any) error {
	return &EvaluationError{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}
