package semantics

import (
	"strconv"
	"strings"

	"crystal/internal/drs"
	"crystal/internal/lexicon"
	"crystal/internal/tree"
)

const (
	copulaPattern = "991"
	ownClass      = "own-100"
)

// verbPhrase: VP -> CV_<n> objects...
func (r *run) verbPhrase(t *tree.Tree) (Value, error) {
	v, err := r.evalChild(t, 0)
	if err != nil {
		return nil, err
	}
	verb, err := asVerb(v)
	if err != nil {
		return nil, err
	}
	p, err := verb(t.Children[1:])
	if err != nil {
		return nil, err
	}
	return p, nil
}

// verb handles the CV_<pattern> nodes. Pattern 991 is the copula; the
// ownership class is "to have"; every other verb is built from its class
// frame for the pattern.
func (r *run) verb(t *tree.Tree) (Value, error) {
	pattern := strings.TrimPrefix(t.Category, verbPrefix)

	var verb Verb
	if pattern == copulaPattern {
		verb = r.copula
	} else {
		n, err := strconv.Atoi(pattern)
		if err != nil {
			return nil, failf(t.Rule(), "invalid verb pattern %q", t.Category)
		}
		head, err := r.child(t, -1)
		if err != nil {
			return nil, err
		}
		class := head.Feature(tree.FeatClass)
		if class == ownClass {
			verb = r.possessionVerb
		} else {
			verb = r.frameVerb(t.Rule(), class, head.Feature(tree.FeatSense), n)
		}
	}

	if t.Feature(tree.FeatSemantics) == "neg" {
		positive := verb
		verb = func(objects []*tree.Tree) (Predicate, error) {
			p, err := positive(objects)
			if err != nil {
				return nil, err
			}
			return func(ref *drs.Referent) (*drs.Box, error) {
				b, err := p(ref)
				if err != nil {
					return nil, err
				}
				return drs.Wrap(drs.NewNegation(b)), nil
			}, nil
		}
	}
	return verb, nil
}

// mergeLiterals drops every terminal that directly follows another
// terminal, so multi-word particles occupy a single frame slot.
func mergeLiterals(objects []*tree.Tree) []*tree.Tree {
	out := make([]*tree.Tree, 0, len(objects))
	for i, o := range objects {
		if i > 0 && o.IsLeaf() && objects[i-1].IsLeaf() {
			continue
		}
		out = append(out, o)
	}
	return out
}

// themeRole builds the predicate linking the event to a role filler,
// together with the selectional restrictions on the filler.
func (r *run) themeRole(event *drs.Referent, role string, restrictions *lexicon.RoleRestrictions) Predicate {
	return func(ref *drs.Referent) (*drs.Box, error) {
		roleBox := drs.Wrap(drs.NewPredicate(roleName(role), event, ref))
		if restrictions == nil || len(restrictions.Restrictions) == 0 {
			return roleBox, nil
		}

		boxes := make([]*drs.Box, len(restrictions.Restrictions))
		for i, res := range restrictions.Restrictions {
			boxes[i] = restrictionBox(res.Value, ref, res.Negated())
		}

		var total *drs.Box
		if restrictions.Logic == "or" {
			total = boxes[0]
			for _, b := range boxes[1:] {
				total = drs.Wrap(drs.Hidden(drs.NewAlternation(total, b)))
			}
		} else {
			total = drs.Merge(append([]*drs.Box{drs.New()}, boxes...)...)
		}
		return drs.Merge(roleBox, total), nil
	}
}

// frameVerb builds a verb from the frame its class uses for pattern. The
// subject always fills the agent role, constrained by the restrictions of
// the frame's subject role; objects fill the frame's remaining slots.
func (r *run) frameVerb(rule, class, sense string, pattern int) Verb {
	return func(objects []*tree.Tree) (Predicate, error) {
		objects = mergeLiterals(objects)

		frame, err := r.lex.Frame(class, pattern)
		if err != nil {
			return nil, failf(rule, "%v", err)
		}
		restrictions, err := r.lex.Restrictions(class)
		if err != nil {
			return nil, failf(rule, "%v", err)
		}
		lookup := func(role string) *lexicon.RoleRestrictions {
			if rr, ok := restrictions[role]; ok {
				return &rr
			}
			return nil
		}

		event := r.alloc.New(drs.EventSort)
		subject := r.themeRole(event, agentRole, lookup(frame.Syntax[0].Value))

		var objectBoxes []*drs.Box
		for i := 2; i < len(frame.Syntax) && i-2 < len(objects); i++ {
			node := frame.Syntax[i]
			if node.Tag != "NP" {
				continue
			}
			if node.Value == "" {
				return nil, failf(rule, "frame slot %d of %s names no role", i, class)
			}
			np, err := r.nounPhraseOf(objects[i-2])
			if err != nil {
				return nil, err
			}
			box, err := np(r.themeRole(event, node.Value, lookup(node.Value)))
			if err != nil {
				return nil, err
			}
			objectBoxes = append(objectBoxes, box)
		}

		return func(ref *drs.Referent) (*drs.Box, error) {
			verbBox := drs.New(event).With(drs.NewPredicate(sense, event))
			verbBox.With(hypernymConditions(r.lex, sense, event)...)
			subjectBox, err := subject(ref)
			if err != nil {
				return nil, err
			}
			return drs.Merge(append([]*drs.Box{verbBox, subjectBox}, objectBoxes...)...), nil
		}, nil
	}
}

// copula is "to be". Its single object is a PRED node holding a noun phrase
// (identity), an adjective or prepositional phrase (ascription), or an
// adjective, a particle and a noun phrase (comparison).
func (r *run) copula(objects []*tree.Tree) (Predicate, error) {
	if len(objects) == 0 {
		return nil, failf("", "verb to be without objects")
	}
	pred := objects[0]

	switch pred.Len() {
	case 1:
		object := pred.Child(0)
		v, err := r.eval(object)
		if err != nil {
			return nil, err
		}
		switch object.Category {
		case "NP":
			np, err := asNounPhrase(v)
			if err != nil {
				return nil, err
			}
			return func(subject *drs.Referent) (*drs.Box, error) {
				return np(func(ref *drs.Referent) (*drs.Box, error) {
					return drs.Wrap(drs.NewEquality(subject, ref)), nil
				})
			}, nil
		case "Adj", "AJP", "PP":
			return asPredicate(v)
		default:
			return nil, failf("", "invalid object for verb to be: %s", object.Category)
		}

	case 3:
		adjective, err := r.relationChild(pred, 0)
		if err != nil {
			return nil, err
		}
		object, err := r.nounPhraseChild(pred, 2)
		if err != nil {
			return nil, err
		}
		return func(subject *drs.Referent) (*drs.Box, error) {
			return object(func(ref *drs.Referent) (*drs.Box, error) {
				return adjective(subject, ref)
			})
		}, nil

	default:
		return nil, failf("", "invalid objects for verb to be: %s", pred)
	}
}

// possessionVerb is "to have": the subject possesses the object.
func (r *run) possessionVerb(objects []*tree.Tree) (Predicate, error) {
	if len(objects) != 1 {
		return nil, failf("", "verb to have takes one object, got %d", len(objects))
	}
	object, err := r.nounPhraseOf(objects[0])
	if err != nil {
		return nil, err
	}
	return func(subject *drs.Referent) (*drs.Box, error) {
		return object(func(ref *drs.Referent) (*drs.Box, error) {
			return drs.Wrap(possessionConditions(subject, ref)...), nil
		})
	}, nil
}
