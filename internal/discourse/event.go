package discourse

import (
	"crystal/internal/describe"
	"crystal/internal/drs"
	"crystal/internal/tree"
)

// EventKind tags a message emitted while processing an utterance.
type EventKind string

const (
	EventInput   EventKind = "input"
	EventComment EventKind = "comment"
	EventResult  EventKind = "result"
	EventProblem EventKind = "problem"
	EventContext EventKind = "context"
)

// Event is one message for the front end. Context events carry the new
// discourse box instead of text.
type Event struct {
	Kind    EventKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Context *drs.Box  `json:"-"`
}

// Messages shown to the user.
const (
	MsgTokenizeFailed   = "Could not tokenize the input."
	MsgNoParse          = "Could not find any parse trees for the input."
	MsgFoundTrees       = "Found %s parse trees."
	MsgOneEvaluated     = "Evaluated 1 interpretation."
	MsgManyEvaluated    = "Evaluated %d interpretations."
	MsgStatementAdded   = "Statement understood and added to context."
	MsgNoInterpretation = "Could not find any consistent interpretation of the input."
	MsgInternalError    = "Error encountered while processing the input."
	MsgContradiction    = "The context both entails the question and its negation."
)

// OutcomeKind classifies how an utterance was handled.
type OutcomeKind string

const (
	OutcomeStatement        OutcomeKind = "statement"
	OutcomeQuestion         OutcomeKind = "question"
	OutcomeUntokenizable    OutcomeKind = "untokenizable"
	OutcomeNoParse          OutcomeKind = "no_parse"
	OutcomeNoInterpretation OutcomeKind = "no_interpretation"
)

// Outcome is the result of processing one utterance.
type Outcome struct {
	Kind   OutcomeKind
	Tokens []string
	// Tree is the winning tree, or the best ranked one when nothing
	// validated.
	Tree *tree.Tree
	// Box is the winning interpretation.
	Box *drs.Box
	// Context is the discourse after the utterance. It only differs from
	// the input context when a statement was accepted.
	Context *drs.Box
	Answer  describe.Answer
	// Text is the result or problem line shown to the user.
	Text            string
	Trees           int
	Interpretations int
}

// Understood reports whether the utterance produced a statement or an
// answered question.
func (o *Outcome) Understood() bool {
	return o.Kind == OutcomeStatement || o.Kind == OutcomeQuestion
}
