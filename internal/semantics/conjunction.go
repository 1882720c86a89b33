package semantics

import (
	"crystal/internal/drs"
	"crystal/internal/tree"
)

// Logical connectives carried by the SEM feature of conjunctions.
const (
	connCause       = "*cause"
	connSequence    = "*a&b"
	connAnd         = "a&b"
	connFirst       = "a"
	connAndNot      = "a&-b"
	connOr          = "a|b"
	connNeither     = "!(a|b)"
	connUnlessLeft  = "(-a)->b"
	connUnlessRight = "(-b)->a"
)

// combine joins two boxes with the connective sem.
func combine(rule, sem string, left, right *drs.Box) (*drs.Box, error) {
	switch sem {
	case connCause:
		return nil, unimplemented(rule, "cause understanding is not yet implemented")
	case connSequence, connAnd:
		return drs.Merge(left, right), nil
	case connFirst:
		return left, nil
	case connAndNot:
		return drs.Merge(left, drs.Wrap(drs.NewNegation(right))), nil
	case connOr:
		return drs.Wrap(drs.NewAlternation(left, right)), nil
	case connNeither:
		return drs.Wrap(drs.NewNegation(drs.Wrap(drs.NewAlternation(left, right)))), nil
	case connUnlessLeft:
		return drs.Wrap(drs.NewImplication(drs.Wrap(drs.NewNegation(left)), right)), nil
	case connUnlessRight:
		return drs.Wrap(drs.NewImplication(drs.Wrap(drs.NewNegation(right)), left)), nil
	default:
		return nil, failf(rule, "unknown conjunction semantics: %q", sem)
	}
}

// conjunction: X -> X Conj X for any kind of X. The result has the same
// kind as the operands and combines their boxes once applied.
func (r *run) conjunction(t *tree.Tree) (Value, error) {
	left, err := r.evalChild(t, 0)
	if err != nil {
		return nil, err
	}
	conj, err := r.child(t, 1)
	if err != nil {
		return nil, err
	}
	right, err := r.evalChild(t, 2)
	if err != nil {
		return nil, err
	}
	return conjoin(t.Rule(), conj.Feature(tree.FeatSemantics), left, right)
}

func conjoin(rule, sem string, left, right Value) (Value, error) {
	switch l := left.(type) {
	case Sentence:
		rb, err := asSentence(right)
		if err != nil {
			return nil, err
		}
		box, err := combine(rule, sem, l.Box, rb)
		if err != nil {
			return nil, err
		}
		return Sentence{Box: box}, nil

	case Predicate:
		rp, err := asPredicate(right)
		if err != nil {
			return nil, err
		}
		return Predicate(func(ref *drs.Referent) (*drs.Box, error) {
			a, err := l(ref)
			if err != nil {
				return nil, err
			}
			b, err := rp(ref)
			if err != nil {
				return nil, err
			}
			return combine(rule, sem, a, b)
		}), nil

	case Relation:
		rr, err := asRelation(right)
		if err != nil {
			return nil, err
		}
		return Relation(func(ref, other *drs.Referent) (*drs.Box, error) {
			a, err := l(ref, other)
			if err != nil {
				return nil, err
			}
			b, err := rr(ref, other)
			if err != nil {
				return nil, err
			}
			return combine(rule, sem, a, b)
		}), nil

	case NounPhrase:
		rn, err := asNounPhrase(right)
		if err != nil {
			return nil, err
		}
		return NounPhrase(func(scope Predicate) (*drs.Box, error) {
			a, err := l(scope)
			if err != nil {
				return nil, err
			}
			b, err := rn(scope)
			if err != nil {
				return nil, err
			}
			return combine(rule, sem, a, b)
		}), nil

	case Determiner:
		rd, err := asDeterminer(right)
		if err != nil {
			return nil, err
		}
		return Determiner(func(restrictor, scope Predicate) (*drs.Box, error) {
			a, err := l(restrictor, scope)
			if err != nil {
				return nil, err
			}
			b, err := rd(restrictor, scope)
			if err != nil {
				return nil, err
			}
			return combine(rule, sem, a, b)
		}), nil

	case Verb:
		rv, err := asVerb(right)
		if err != nil {
			return nil, err
		}
		return Verb(func(objects []*tree.Tree) (Predicate, error) {
			a, err := l(objects)
			if err != nil {
				return nil, err
			}
			b, err := rv(objects)
			if err != nil {
				return nil, err
			}
			v, err := conjoin(rule, sem, a, b)
			if err != nil {
				return nil, err
			}
			return v.(Predicate), nil
		}), nil

	default:
		return nil, failf(rule, "cannot conjoin %s", describe(left))
	}
}
