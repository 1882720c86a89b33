package semantics

import (
	"strings"

	"crystal/internal/drs"
	"crystal/internal/tree"
)

// Comparison suffixes appended to adjective senses.
const (
	superlativeSuffix = "/sup"
	comparativeSuffix = "/cmp"
)

// adjective: an Adj pre-terminal. Superlatives add a "/sup" condition;
// comparatives with a target add a strict "/cmp" ordering.
func (r *run) adjective(t *tree.Tree) (Value, error) {
	sense := t.Feature(tree.FeatSense)
	if sense == "" {
		return nil, failf(t.Rule(), "adjective without sense")
	}
	degree := t.Feature(tree.FeatDegree)
	return Relation(func(ref, other *drs.Referent) (*drs.Box, error) {
		box := drs.Wrap(drs.NewPredicate(sense, ref))
		switch {
		case degree == "sup":
			box.AddCondition(drs.NewPredicate(sense+superlativeSuffix, ref))
		case degree == "cmp" && other != nil:
			cmp := sense + comparativeSuffix
			box.AddCondition(drs.NewPredicate(cmp, ref, other))
			box.AddCondition(drs.NewNegation(drs.Wrap(drs.NewPredicate(cmp, other, ref))))
		}
		return box, nil
	}), nil
}

// adjectiveChain: AJP -> Adj AJP.
func (r *run) adjectiveChain(t *tree.Tree) (Value, error) {
	first, err := r.relationChild(t, 0)
	if err != nil {
		return nil, err
	}
	rest, err := r.relationChild(t, 1)
	if err != nil {
		return nil, err
	}
	return Relation(func(ref, other *drs.Referent) (*drs.Box, error) {
		a, err := first(ref, other)
		if err != nil {
			return nil, err
		}
		b, err := rest(ref, other)
		if err != nil {
			return nil, err
		}
		return drs.Merge(a, b), nil
	}), nil
}

// prepositionalPhrase: PP -> Prep NP. The special preposition "of" denotes
// possession by the object.
func (r *run) prepositionalPhrase(t *tree.Tree) (Value, error) {
	prep, err := r.child(t, 0)
	if err != nil {
		return nil, err
	}
	preposition := strings.Join(prep.Leaves(), "_")
	special := t.Feature(tree.FeatType) == "special"
	if special && preposition != "of" {
		return nil, failf(t.Rule(), "unexpected special preposition %q", preposition)
	}
	np, err := r.nounPhraseChild(t, 1)
	if err != nil {
		return nil, err
	}
	return Predicate(func(subject *drs.Referent) (*drs.Box, error) {
		return np(func(object *drs.Referent) (*drs.Box, error) {
			if special {
				return drs.Wrap(possessionConditions(object, subject)...), nil
			}
			return drs.Wrap(drs.NewPredicate(preposition, subject, object)), nil
		})
	}), nil
}

// negatedPrepositionalPhrase: PP -> 'not' PP.
func (r *run) negatedPrepositionalPhrase(t *tree.Tree) (Value, error) {
	pp, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return Predicate(func(ref *drs.Referent) (*drs.Box, error) {
		b, err := pp(ref)
		if err != nil {
			return nil, err
		}
		return drs.Wrap(drs.NewNegation(b)), nil
	}), nil
}
