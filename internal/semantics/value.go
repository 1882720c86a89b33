package semantics

import (
	"fmt"

	"crystal/internal/drs"
	"crystal/internal/tree"
)

// Value is the meaning of a subtree: either a finished Sentence or one of
// the functor types that the parent node applies to what the rest of the
// sentence supplies.
type Value interface {
	value()
}

// Sentence is a finished representation.
type Sentence struct {
	Box *drs.Box
}

// Predicate maps a referent to the conditions a noun, verb phrase or
// prepositional phrase places on it.
type Predicate func(ref *drs.Referent) (*drs.Box, error)

// Relation is an adjective meaning. other is the comparison target for
// comparatives and nil otherwise.
type Relation func(ref, other *drs.Referent) (*drs.Box, error)

// NounPhrase is a quantified noun phrase: given the scope that the rest of
// the sentence applies to its referent, it builds the sentence box.
type NounPhrase func(scope Predicate) (*drs.Box, error)

// Determiner combines a restrictor and a scope into a sentence box.
type Determiner func(restrictor, scope Predicate) (*drs.Box, error)

// Verb takes the object subtrees of its verb phrase and yields the
// predicate that applies to the subject.
type Verb func(objects []*tree.Tree) (Predicate, error)

func (Sentence) value()   {}
func (Predicate) value()  {}
func (Relation) value()   {}
func (NounPhrase) value() {}
func (Determiner) value() {}
func (Verb) value()       {}

func describe(v Value) string {
	switch v.(type) {
	case Sentence:
		return "sentence"
	case Predicate:
		return "predicate"
	case Relation:
		return "relation"
	case NounPhrase:
		return "noun phrase"
	case Determiner:
		return "determiner"
	case Verb:
		return "verb"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func mismatch(want string, got Value) error {
	return &EvaluationError{Msg: fmt.Sprintf("expected %s, got %s", want, describe(got))}
}

func asSentence(v Value) (*drs.Box, error) {
	if s, ok := v.(Sentence); ok {
		return s.Box, nil
	}
	return nil, mismatch("sentence", v)
}

// asPredicate accepts a Relation as a predicate without comparison target.
func asPredicate(v Value) (Predicate, error) {
	switch f := v.(type) {
	case Predicate:
		return f, nil
	case Relation:
		return func(ref *drs.Referent) (*drs.Box, error) { return f(ref, nil) }, nil
	default:
		return nil, mismatch("predicate", v)
	}
}

// asRelation accepts a Predicate as a relation that ignores its target.
func asRelation(v Value) (Relation, error) {
	switch f := v.(type) {
	case Relation:
		return f, nil
	case Predicate:
		return func(ref, _ *drs.Referent) (*drs.Box, error) { return f(ref) }, nil
	default:
		return nil, mismatch("relation", v)
	}
}

func asNounPhrase(v Value) (NounPhrase, error) {
	if f, ok := v.(NounPhrase); ok {
		return f, nil
	}
	return nil, mismatch("noun phrase", v)
}

func asDeterminer(v Value) (Determiner, error) {
	if f, ok := v.(Determiner); ok {
		return f, nil
	}
	return nil, mismatch("determiner", v)
}

func asVerb(v Value) (Verb, error) {
	if f, ok := v.(Verb); ok {
		return f, nil
	}
	return nil, mismatch("verb", v)
}

// compose merges the boxes produced by applying each predicate to ref.
func compose(preds ...Predicate) Predicate {
	return func(ref *drs.Referent) (*drs.Box, error) {
		out := drs.New()
		for _, p := range preds {
			b, err := p(ref)
			if err != nil {
				return nil, err
			}
			out.Merge(b)
		}
		return out, nil
	}
}

func emptyPredicate(*drs.Referent) (*drs.Box, error) { return drs.New(), nil }
