package semantics

import (
	"crystal/internal/drs"
	"crystal/internal/tree"
)

// whDeterminer asks for the referent satisfying restrictor and scope.
func (r *run) whDeterminer(restrictor Predicate) NounPhrase {
	return func(scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SingularSort)
		a, err := restrictor(ref)
		if err != nil {
			return nil, err
		}
		b, err := scope(ref)
		if err != nil {
			return nil, err
		}
		box := drs.Merge(a, b)
		box.AddReferent(ref)
		return drs.SubjectQuestionOf(box, ref), nil
	}
}

// proform: Q -> 'what' | 'who'.
func (r *run) proform(*tree.Tree) (Value, error) {
	return r.whDeterminer(emptyPredicate), nil
}

// proformWithNoun: Q -> 'what' Noun.
func (r *run) proformWithNoun(t *tree.Tree) (Value, error) {
	noun, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return r.whDeterminer(noun), nil
}

// proformWithNounAndAdjective: Q -> 'what' AJP Noun.
func (r *run) proformWithNounAndAdjective(t *tree.Tree) (Value, error) {
	adjective, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	noun, err := r.predicateChild(t, 2)
	if err != nil {
		return nil, err
	}
	return r.whDeterminer(compose(adjective, noun)), nil
}

// possessiveProformWithNoun: Q -> 'whose' Noun.
func (r *run) possessiveProformWithNoun(t *tree.Tree) (Value, error) {
	noun, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return r.ownerQuestion(noun), nil
}

// possessiveProformWithNounAndAdjective: Q -> 'whose' AJP Noun.
func (r *run) possessiveProformWithNounAndAdjective(t *tree.Tree) (Value, error) {
	adjective, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	noun, err := r.predicateChild(t, 2)
	if err != nil {
		return nil, err
	}
	return r.ownerQuestion(compose(noun, adjective)), nil
}

// ownerQuestion asks for the owner of a referent satisfying restrictor.
func (r *run) ownerQuestion(restrictor Predicate) NounPhrase {
	return func(scope Predicate) (*drs.Box, error) {
		owner := r.alloc.New(drs.SingularSort)
		owned := r.alloc.New(drs.SingularSort)
		a, err := restrictor(owned)
		if err != nil {
			return nil, err
		}
		b, err := scope(owned)
		if err != nil {
			return nil, err
		}
		ownership := drs.New(owned, owner).With(possessionConditions(owner, owned)...)
		return drs.SubjectQuestionOf(drs.Merge(a, b, ownership), owner), nil
	}
}
