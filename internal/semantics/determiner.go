package semantics

import (
	"crystal/internal/drs"
	"crystal/internal/tree"
)

// apply fixes the restrictor of a determiner, giving a noun phrase.
func (d Determiner) apply(restrictor Predicate) NounPhrase {
	return func(scope Predicate) (*drs.Box, error) {
		return d(restrictor, scope)
	}
}

// article: DT -> Art.
func (r *run) article(t *tree.Tree) (Value, error) {
	art, err := r.child(t, 0)
	if err != nil {
		return nil, err
	}
	if art.Features.Bool(tree.FeatDefinite) {
		return r.definiteDeterminer(), nil
	}
	return r.indefiniteDeterminer(), nil
}

// definiteDeterminer presupposes a referent satisfying the restrictor.
func (r *run) definiteDeterminer() Determiner {
	return func(restrictor, scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SingularSort)
		requirements, err := restrictor(ref)
		if err != nil {
			return nil, err
		}
		body, err := scope(ref)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.Wrap(drs.NewResolution(ref, requirements, drs.Presuppose)), body), nil
	}
}

// indefiniteDeterminer introduces a new referent.
func (r *run) indefiniteDeterminer() Determiner {
	return func(restrictor, scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SingularSort)
		restriction, err := restrictor(ref)
		if err != nil {
			return nil, err
		}
		body, err := scope(ref)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.New(ref), restriction, body), nil
	}
}

// universalDeterminer: every referent satisfying the restrictor satisfies
// the scope.
func (r *run) universalDeterminer() Determiner {
	return func(restrictor, scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SingularSort)
		restriction, err := restrictor(ref)
		if err != nil {
			return nil, err
		}
		antecedent := drs.Merge(drs.New(ref), restriction)
		consequent, err := scope(ref)
		if err != nil {
			return nil, err
		}
		return drs.Wrap(drs.NewImplication(antecedent, consequent)), nil
	}
}

// negativeDeterminer: no referent satisfying the restrictor satisfies the
// scope.
func (r *run) negativeDeterminer() Determiner {
	return func(restrictor, scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SingularSort)
		restriction, err := restrictor(ref)
		if err != nil {
			return nil, err
		}
		antecedent := drs.Merge(drs.New(ref), restriction)
		body, err := scope(ref)
		if err != nil {
			return nil, err
		}
		consequent := drs.Wrap(drs.NewNegation(body))
		return drs.Wrap(drs.NewImplication(antecedent, consequent)), nil
	}
}

// possessivePronounDeterminer: DT -> Pro[CASE=poss_det], as in "his dog".
// Both the owner and the owned referent are left for resolution; the owner
// as a pronoun nested in the requirements of the owned.
func (r *run) possessivePronounDeterminer(t *tree.Tree) (Value, error) {
	pro, err := r.child(t, 0)
	if err != nil {
		return nil, err
	}
	number := t.Feature(tree.FeatNumber)
	return Determiner(func(restrictor, scope Predicate) (*drs.Box, error) {
		owner := r.alloc.New(drs.SortFromNumber(number))
		ownerRequirements := drs.Wrap(genderConditions(r.lex, pro, owner)...)
		ownerCond := drs.NewResolution(owner, ownerRequirements, drs.PronounPossessive)

		owned := r.alloc.New(drs.SingularSort)
		possession := possessionConditions(owner, owned)

		requirements, err := restrictor(owned)
		if err != nil {
			return nil, err
		}
		requirements.With(possession...).With(ownerCond)

		body, err := scope(owned)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.Wrap(drs.NewResolution(owned, requirements, drs.Presuppose)), body), nil
	}), nil
}

// possessiveDeterminer: DT -> NP "'s", as in "John's dog".
func (r *run) possessiveDeterminer(t *tree.Tree) (Value, error) {
	owner, err := r.nounPhraseChild(t, 0)
	if err != nil {
		return nil, err
	}
	return Determiner(func(restrictor, scope Predicate) (*drs.Box, error) {
		owned := r.alloc.New(drs.SingularSort)
		requirements, err := restrictor(owned)
		if err != nil {
			return nil, err
		}
		ownership, err := owner(func(o *drs.Referent) (*drs.Box, error) {
			return drs.Wrap(possessionConditions(o, owned)...), nil
		})
		if err != nil {
			return nil, err
		}
		requirements = drs.Merge(requirements, ownership)

		body, err := scope(owned)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.Wrap(drs.NewResolution(owned, requirements, drs.Presuppose)), body), nil
	}), nil
}
