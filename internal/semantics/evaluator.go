// Package semantics turns annotated parse trees into discourse
// representations.
//
// Every grammar rule id maps to one handler. A handler evaluates the
// children it needs and returns either a finished Sentence or a functor
// (Predicate, Relation, NounPhrase, Determiner, Verb) that its parent
// applies. Quantifier scope and binding order follow from the order in which
// those functors are applied.
//
// Evaluation has no side effects besides allocating referents from the
// Allocator it was built with.
package semantics

import (
	"context"
	"errors"
	"strings"

	"crystal/internal/drs"
	"crystal/internal/lexicon"
	"crystal/internal/tree"
)

// FragmentChecker decides whether a clause is consistent on its own, or
// together with an already evaluated antecedent. It is consulted for
// conditionals in strict mode.
type FragmentChecker interface {
	FragmentConsistent(ctx context.Context, fragment, antecedent *drs.Box) (bool, error)
}

// Evaluator evaluates trees against a lexicon.
type Evaluator struct {
	lex     *lexicon.Lexicon
	alloc   *drs.Allocator
	checker FragmentChecker
}

// New creates an evaluator. checker may be nil, in which case strict mode
// evaluation of conditionals fails.
func New(lex *lexicon.Lexicon, alloc *drs.Allocator, checker FragmentChecker) *Evaluator {
	return &Evaluator{lex: lex, alloc: alloc, checker: checker}
}

// Allocator returns the allocator referents are drawn from.
func (e *Evaluator) Allocator() *drs.Allocator { return e.alloc }

// Evaluate builds the representation of a sentence tree. In strict mode
// the clauses of every conditional must be consistent on their own.
func (e *Evaluator) Evaluate(ctx context.Context, t *tree.Tree, strict bool) (*drs.Box, error) {
	v, err := e.Value(ctx, t, strict)
	if err != nil {
		return nil, err
	}
	box, err := asSentence(v)
	if err != nil {
		return nil, annotate(err, t.Rule())
	}
	return box, nil
}

// Value evaluates any subtree and returns its semantic value.
func (e *Evaluator) Value(ctx context.Context, t *tree.Tree, strict bool) (Value, error) {
	r := &run{Evaluator: e, ctx: ctx, strict: strict}
	return r.eval(t)
}

// run carries the per-call state through the handlers.
type run struct {
	*Evaluator
	ctx    context.Context
	strict bool
}

type handler func(r *run, t *tree.Tree) (Value, error)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		// sentences
		"1":  (*run).sentence,
		"2":  (*run).passthrough,
		"3":  (*run).conditional,
		"4":  (*run).alternativeConditional,
		"5":  (*run).conjunctSentence,
		"6":  compound((*run).conjunctSentence),
		"7":  (*run).question,
		"8":  (*run).predicateQuestion,
		"9":  (*run).negatedPredicateQuestion,
		"10": (*run).genericQuestion,
		"11": (*run).sentence,
		"12": (*run).objectQuestion,
		"13": (*run).particledObjectQuestion,

		// prepositional phrases
		"201": (*run).prepositionalPhrase,
		"202": (*run).negatedPrepositionalPhrase,
		"203": (*run).conjunction,
		"204": compound((*run).conjunction),

		// noun phrases
		"301": (*run).pronoun,
		"302": (*run).pronoun,
		"303": (*run).pronoun,
		"304": (*run).possessivePredicatePronoun,
		"305": (*run).undeterminedNoun,
		"306": (*run).undeterminedNounWithAdjective,
		"307": (*run).undeterminedNoun,
		"308": (*run).undeterminedNounWithAdjective,
		"309": (*run).determinedNoun,
		"310": (*run).passthrough,
		"311": (*run).determinedNounWithAdjective,
		"312": (*run).determinedProperNameWithAdjective,
		"313": (*run).determinedProperName,
		"314": (*run).determinedSuperlative,
		"315": (*run).conjunction,
		"316": compound((*run).conjunction),
		"317": (*run).nounPhraseWithPrepositionalPhrase,
		"318": (*run).nounModifier,

		// determiners
		"401": (*run).article,
		"402": fixed((*run).definiteDeterminer),
		"403": fixed((*run).indefiniteDeterminer),
		"404": fixed((*run).indefiniteDeterminer),
		"405": fixed((*run).indefiniteDeterminer),
		"406": fixed((*run).universalDeterminer),
		"407": fixed((*run).negativeDeterminer),
		"408": (*run).possessivePronounDeterminer,
		"409": (*run).possessiveDeterminer,
		"410": (*run).conjunction,
		"411": compound((*run).conjunction),

		// adjectives
		"501": (*run).adjectiveChain,
		"502": (*run).passthrough,
		"503": (*run).conjunction,
		"504": compound((*run).conjunction),
		"505": (*run).conjunction,
		"506": compound((*run).conjunction),

		// proper names
		"601": (*run).compoundProperName,
		"602": (*run).simpleProperName,

		// verb coordination
		"701": (*run).conjunction,
		"702": compound((*run).conjunction),
		"801": (*run).conjunction,
		"802": compound((*run).conjunction),

		// wh-proforms
		"901": (*run).proform,
		"902": (*run).proformWithNoun,
		"903": (*run).proformWithNounAndAdjective,
		"904": (*run).possessiveProformWithNoun,
		"905": (*run).possessiveProformWithNounAndAdjective,

		// categories without a rule id
		"Noun": (*run).noun,
		"Adj":  (*run).adjective,
		"VP":   (*run).verbPhrase,
		"VPQ":  (*run).verbPhrase,
	}
}

// fixed adapts a determiner that does not depend on its tree.
func fixed(f func(r *run) Determiner) handler {
	return func(r *run, _ *tree.Tree) (Value, error) { return f(r), nil }
}

// compound evaluates h over the children after the first, for rules that
// carry a leading particle ("either ... or", "both ... and").
func compound(h handler) handler {
	return func(r *run, t *tree.Tree) (Value, error) {
		if t.Len() < 2 {
			return nil, failf(t.Rule(), "compound rule needs a leading particle")
		}
		rest := tree.Node(t.Category, t.Features, t.Children[1:]...)
		return h(r, rest)
	}
}

// verbPrefix marks the unrolled verb rules CV_<pattern>.
const verbPrefix = "CV_"

func (r *run) eval(t *tree.Tree) (Value, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	if t == nil || t.IsLeaf() {
		return nil, failf("", "cannot evaluate a terminal")
	}

	key := t.Rule()
	h, ok := handlers[key]
	if !ok && strings.HasPrefix(key, verbPrefix) {
		h, ok = (*run).verb, true
	}
	if !ok {
		return nil, unimplemented(key, "no handler for "+key)
	}

	v, err := h(r, t)
	if err != nil {
		return nil, annotate(err, key)
	}
	return v, nil
}

// annotate fills in the rule on evaluation errors raised below it.
func annotate(err error, rule string) error {
	var ee *EvaluationError
	if errors.As(err, &ee) && ee.Rule == "" {
		ee.Rule = rule
	}
	return err
}

func (r *run) child(t *tree.Tree, i int) (*tree.Tree, error) {
	if i >= t.Len() || i < -t.Len() {
		return nil, failf(t.Rule(), "missing child %d", i)
	}
	return t.Child(i), nil
}

func (r *run) evalChild(t *tree.Tree, i int) (Value, error) {
	c, err := r.child(t, i)
	if err != nil {
		return nil, err
	}
	return r.eval(c)
}

func (r *run) sentenceChild(t *tree.Tree, i int) (*drs.Box, error) {
	v, err := r.evalChild(t, i)
	if err != nil {
		return nil, err
	}
	return asSentence(v)
}

func (r *run) predicateChild(t *tree.Tree, i int) (Predicate, error) {
	v, err := r.evalChild(t, i)
	if err != nil {
		return nil, err
	}
	return asPredicate(v)
}

func (r *run) relationChild(t *tree.Tree, i int) (Relation, error) {
	v, err := r.evalChild(t, i)
	if err != nil {
		return nil, err
	}
	return asRelation(v)
}

func (r *run) nounPhraseChild(t *tree.Tree, i int) (NounPhrase, error) {
	v, err := r.evalChild(t, i)
	if err != nil {
		return nil, err
	}
	return asNounPhrase(v)
}

func (r *run) determinerChild(t *tree.Tree, i int) (Determiner, error) {
	v, err := r.evalChild(t, i)
	if err != nil {
		return nil, err
	}
	return asDeterminer(v)
}

func (r *run) passthrough(t *tree.Tree) (Value, error) {
	return r.evalChild(t, 0)
}
