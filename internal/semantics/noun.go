package semantics

import (
	"strings"
	"unicode"

	"crystal/internal/drs"
	"crystal/internal/tree"
)

// noun: a Noun pre-terminal. Applying it fixes the referent's sort from the
// number feature and adds the sense, gender and hypernym conditions.
func (r *run) noun(t *tree.Tree) (Value, error) {
	sense := t.Feature(tree.FeatSense)
	if sense == "" {
		return nil, failf(t.Rule(), "noun without sense")
	}
	number := t.Feature(tree.FeatNumber)
	return Predicate(func(ref *drs.Referent) (*drs.Box, error) {
		if !ref.Named() {
			ref.Sort = drs.SortFromNumber(number)
		}
		box := drs.Wrap(drs.NewPredicate(sense, ref))
		box.With(genderConditions(r.lex, t, ref)...)
		box.With(hypernymConditions(r.lex, sense, ref)...)
		return box, nil
	}), nil
}

// nounModifier: Noun -> Noun Noun, as in "farm animal".
func (r *run) nounModifier(t *tree.Tree) (Value, error) {
	modifier, err := r.predicateChild(t, 0)
	if err != nil {
		return nil, err
	}
	head, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return Predicate(func(ref *drs.Referent) (*drs.Box, error) {
		m := r.alloc.New(drs.SingularSort)
		link := drs.New(m).With(drs.NewPredicate(modifyPredicate, m, ref))
		headBox, err := head(ref)
		if err != nil {
			return nil, err
		}
		modBox, err := modifier(m)
		if err != nil {
			return nil, err
		}
		return drs.Merge(link, headBox, modBox), nil
	}), nil
}

// undeterminedNoun: NP -> Noun, a bare plural or mass noun.
func (r *run) undeterminedNoun(t *tree.Tree) (Value, error) {
	noun, err := r.predicateChild(t, 0)
	if err != nil {
		return nil, err
	}
	return r.indefiniteDeterminer().apply(noun), nil
}

// undeterminedNounWithAdjective: NP -> AJP Noun.
func (r *run) undeterminedNounWithAdjective(t *tree.Tree) (Value, error) {
	adjective, err := r.predicateChild(t, 0)
	if err != nil {
		return nil, err
	}
	noun, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return r.indefiniteDeterminer().apply(compose(adjective, noun)), nil
}

// determinedNoun: NP -> DT Noun.
func (r *run) determinedNoun(t *tree.Tree) (Value, error) {
	det, err := r.determinerChild(t, 0)
	if err != nil {
		return nil, err
	}
	noun, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return det.apply(noun), nil
}

// determinedNounWithAdjective: NP -> DT AJP Noun.
func (r *run) determinedNounWithAdjective(t *tree.Tree) (Value, error) {
	det, err := r.determinerChild(t, 0)
	if err != nil {
		return nil, err
	}
	adjective, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	noun, err := r.predicateChild(t, 2)
	if err != nil {
		return nil, err
	}
	return det.apply(compose(adjective, noun)), nil
}

// determinedProperNameWithAdjective: NP -> DT AJP PN, as in "the old John".
func (r *run) determinedProperNameWithAdjective(t *tree.Tree) (Value, error) {
	adjective, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	name, err := r.nounPhraseChild(t, 2)
	if err != nil {
		return nil, err
	}
	return NounPhrase(func(scope Predicate) (*drs.Box, error) {
		return name(compose(adjective, scope))
	}), nil
}

// determinedProperName: NP -> DT PN, as in "the Netherlands".
func (r *run) determinedProperName(t *tree.Tree) (Value, error) {
	return r.evalChild(t, 1)
}

// determinedSuperlative: NP -> Art[+definite] Adj[DEG=sup].
func (r *run) determinedSuperlative(t *tree.Tree) (Value, error) {
	adjective, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return r.definiteDeterminer().apply(adjective), nil
}

// nounPhraseWithPrepositionalPhrase: NP -> NP PP.
func (r *run) nounPhraseWithPrepositionalPhrase(t *tree.Tree) (Value, error) {
	np, err := r.nounPhraseChild(t, 0)
	if err != nil {
		return nil, err
	}
	pp, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	return NounPhrase(func(scope Predicate) (*drs.Box, error) {
		return np(compose(scope, pp))
	}), nil
}

// pronoun: NP -> Pro. The referent is left for resolution with the
// pronoun's gender as requirements.
func (r *run) pronoun(t *tree.Tree) (Value, error) {
	pro, err := r.child(t, 0)
	if err != nil {
		return nil, err
	}
	number := t.Feature(tree.FeatNumber)
	kind := drs.ResolutionKind("pronoun-" + pro.Feature(tree.FeatCase))
	return NounPhrase(func(scope Predicate) (*drs.Box, error) {
		ref := r.alloc.New(drs.SortFromNumber(number))
		requirements := drs.Wrap(genderConditions(r.lex, pro, ref)...)
		body, err := scope(ref)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.Wrap(drs.NewResolution(ref, requirements, kind)), body), nil
	}), nil
}

// possessivePredicatePronoun: NP -> Pro[CASE=poss_pred], as in "his" in
// "the dog is his". The owned referent is resolved through its owner.
func (r *run) possessivePredicatePronoun(t *tree.Tree) (Value, error) {
	v, err := r.pronoun(t)
	if err != nil {
		return nil, err
	}
	owner := v.(NounPhrase)
	return NounPhrase(func(scope Predicate) (*drs.Box, error) {
		owned := r.alloc.New(drs.SingularSort)
		requirements, err := owner(func(o *drs.Referent) (*drs.Box, error) {
			return drs.Wrap(possessionConditions(o, owned)...), nil
		})
		if err != nil {
			return nil, err
		}
		body, err := scope(owned)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.Wrap(drs.NewResolution(owned, requirements, drs.PossessedPronoun)), body), nil
	}), nil
}

// simpleProperName: PN -> PrpN.
func (r *run) simpleProperName(t *tree.Tree) (Value, error) {
	word, err := r.child(t, 0)
	if err != nil {
		return nil, err
	}
	return r.properName(t, word.Leaves()), nil
}

// compoundProperName: PN -> Ttl PrpN, as in "Mister Smith".
func (r *run) compoundProperName(t *tree.Tree) (Value, error) {
	if t.Len() < 2 {
		return nil, failf(t.Rule(), "compound name needs a title and a name")
	}
	words := append(t.Child(0).Leaves(), t.Child(1).Leaves()...)
	return r.properName(t, words), nil
}

func (r *run) properName(t *tree.Tree, words []string) NounPhrase {
	ref := r.alloc.Named(properNameID(words))
	return func(scope Predicate) (*drs.Box, error) {
		body, err := scope(ref)
		if err != nil {
			return nil, err
		}
		return drs.Merge(drs.New(ref).With(genderConditions(r.lex, t, ref)...), body), nil
	}
}

// properNameID title-cases a name and joins its words with underscores.
func properNameID(words []string) string {
	name := strings.ReplaceAll(strings.Join(words, " "), "_", " ")
	var sb strings.Builder
	prev := ' '
	for _, c := range name {
		if unicode.IsLetter(prev) {
			sb.WriteRune(unicode.ToLower(c))
		} else {
			sb.WriteRune(unicode.ToUpper(c))
		}
		prev = c
	}
	return strings.ReplaceAll(sb.String(), " ", "_")
}
