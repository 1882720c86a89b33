package semantics

import (
	"slices"

	"crystal/internal/drs"
	"crystal/internal/tree"
)

// sentence: S -> NP VP.
func (r *run) sentence(t *tree.Tree) (Value, error) {
	subject, err := r.nounPhraseChild(t, 0)
	if err != nil {
		return nil, err
	}
	vp, err := r.predicateChild(t, 1)
	if err != nil {
		return nil, err
	}
	box, err := subject(vp)
	if err != nil {
		return nil, err
	}
	return Sentence{Box: box}, nil
}

// conditional: S -> Cond S (Pnct|Then) S.
func (r *run) conditional(t *tree.Tree) (Value, error) {
	if t.Len() < 4 {
		return nil, failf(t.Rule(), "conditional needs four children")
	}
	return r.implication(t.Rule(), t.Child(1), t.Child(3))
}

// alternativeConditional: S -> S Cond S, the consequent first.
func (r *run) alternativeConditional(t *tree.Tree) (Value, error) {
	if t.Len() < 3 {
		return nil, failf(t.Rule(), "conditional needs three children")
	}
	return r.implication(t.Rule(), t.Child(2), t.Child(0))
}

func (r *run) implication(rule string, antecedentTree, consequentTree *tree.Tree) (Value, error) {
	antecedent, err := r.sentenceOf(antecedentTree)
	if err != nil {
		return nil, err
	}
	if r.strict {
		if err := r.checkFragment(rule, antecedent, nil, "an antecedent failed consistency check"); err != nil {
			return nil, err
		}
	}

	consequent, err := r.sentenceOf(consequentTree)
	if err != nil {
		return nil, err
	}
	if r.strict {
		if err := r.checkFragment(rule, consequent, antecedent, "a consequent failed consistency check"); err != nil {
			return nil, err
		}
	}

	return Sentence{Box: drs.Wrap(drs.NewImplication(antecedent, consequent))}, nil
}

func (r *run) checkFragment(rule string, fragment, antecedent *drs.Box, msg string) error {
	if r.checker == nil {
		return failf(rule, "strict evaluation needs a fragment checker")
	}
	ok, err := r.checker.FragmentConsistent(r.ctx, fragment, antecedent)
	if err != nil {
		return err
	}
	if !ok {
		return failf(rule, "%s", msg)
	}
	return nil
}

func (r *run) sentenceOf(t *tree.Tree) (*drs.Box, error) {
	v, err := r.eval(t)
	if err != nil {
		return nil, err
	}
	return asSentence(v)
}

// conjunctSentence: S -> S Conj S.
func (r *run) conjunctSentence(t *tree.Tree) (Value, error) {
	left, err := r.sentenceChild(t, 0)
	if err != nil {
		return nil, err
	}
	conj, err := r.child(t, 1)
	if err != nil {
		return nil, err
	}
	right, err := r.sentenceChild(t, 2)
	if err != nil {
		return nil, err
	}
	box, err := combine(t.Rule(), conj.Feature(tree.FeatSemantics), left, right)
	if err != nil {
		return nil, err
	}
	return Sentence{Box: box}, nil
}

// question: S -> S Pnct[TYP=qst]. A sentence that is not yet a question
// becomes a yes/no question.
func (r *run) question(t *tree.Tree) (Value, error) {
	box, err := r.sentenceChild(t, 0)
	if err != nil {
		return nil, err
	}
	if !box.IsQuestion() {
		box = drs.PolarQuestionOf(box)
	}
	return Sentence{Box: box}, nil
}

// predicateQuestion: S -> AuxV NP PRED, as in "is he happy". The auxiliary
// is rebuilt as a copula verb phrase around the predicate.
func (r *run) predicateQuestion(t *tree.Tree) (Value, error) {
	box, err := r.predicateQuestionBox(t)
	if err != nil {
		return nil, err
	}
	return Sentence{Box: drs.PolarQuestionOf(box)}, nil
}

func (r *run) predicateQuestionBox(t *tree.Tree) (*drs.Box, error) {
	if t.Len() < 3 {
		return nil, failf(t.Rule(), "predicate question needs three children")
	}
	copula := t.Child(0).Copy()
	copula.Category = verbPrefix + copulaPattern
	delete(copula.Features, tree.FeatRule)

	vpFeatures := tree.Features{}
	for k, v := range copula.Features {
		vpFeatures[k] = v
	}
	vp := tree.Node("VP", vpFeatures, copula, t.Child(2))
	s := tree.Node("S", nil, t.Child(1), vp)

	v, err := r.sentence(s)
	if err != nil {
		return nil, err
	}
	return asSentence(v)
}

// negatedPredicateQuestion: S -> AuxV NP 'not' PRED.
func (r *run) negatedPredicateQuestion(t *tree.Tree) (Value, error) {
	if t.Len() < 4 {
		return nil, failf(t.Rule(), "negated predicate question needs four children")
	}
	positive := tree.Node(t.Category, t.Features, slices.Delete(slices.Clone(t.Children), 2, 3)...)
	box, err := r.predicateQuestionBox(positive)
	if err != nil {
		return nil, err
	}
	return Sentence{Box: drs.PolarQuestionOf(drs.Wrap(drs.NewNegation(box)))}, nil
}

// genericQuestion: S -> AuxV[TYP=do] NP VP, as in "does he run".
func (r *run) genericQuestion(t *tree.Tree) (Value, error) {
	if t.Len() < 3 {
		return nil, failf(t.Rule(), "question needs three children")
	}
	v, err := r.sentence(tree.Node("S", nil, t.Children[1:]...))
	if err != nil {
		return nil, err
	}
	box, err := asSentence(v)
	if err != nil {
		return nil, err
	}
	return Sentence{Box: drs.PolarQuestionOf(box)}, nil
}

// objectQuestion: S -> Q AuxV NP VPQ, as in "what does he own".
func (r *run) objectQuestion(t *tree.Tree) (Value, error) {
	if t.Len() < 4 {
		return nil, failf(t.Rule(), "object question needs four children")
	}
	return r.whQuestion(t, []*tree.Tree{t.Child(0)})
}

// particledObjectQuestion: S -> QM AuxV NP VPQ, where QM carries a particle
// and the proform, as in "to whom does he talk".
func (r *run) particledObjectQuestion(t *tree.Tree) (Value, error) {
	if t.Len() < 4 {
		return nil, failf(t.Rule(), "object question needs four children")
	}
	return r.whQuestion(t, t.Child(0).Children)
}

// whQuestion splices the fronted elements back into the verb phrase at the
// position given by its TRGT feature and evaluates the resulting clause.
func (r *run) whQuestion(t *tree.Tree, fronted []*tree.Tree) (Value, error) {
	subjectTree := t.Child(2)
	vp := t.Child(3).Copy()

	target, ok := vp.Features.Int(tree.FeatTarget)
	if !ok || target < 1 || target-1 > vp.Len() {
		return nil, failf(t.Rule(), "invalid question target %q", vp.Feature(tree.FeatTarget))
	}
	spliced := make([]*tree.Tree, 0, vp.Len()+len(fronted))
	spliced = append(spliced, vp.Children[:target-1]...)
	for _, f := range fronted {
		spliced = append(spliced, f.Copy())
	}
	spliced = append(spliced, vp.Children[target-1:]...)
	vp.Children = spliced

	subject, err := r.nounPhraseOf(subjectTree)
	if err != nil {
		return nil, err
	}
	vpValue, err := r.eval(vp)
	if err != nil {
		return nil, err
	}
	scope, err := asPredicate(vpValue)
	if err != nil {
		return nil, err
	}
	box, err := subject(scope)
	if err != nil {
		return nil, err
	}

	if box.Kind() != drs.SubjectQuestion {
		var found *drs.Referent
		for _, b := range box.Walk() {
			if b.Kind() != drs.SubjectQuestion {
				continue
			}
			if found != nil {
				return nil, failf(t.Rule(), "multiple questions in a single sentence")
			}
			found = b.Target()
		}
		if found == nil {
			return nil, failf(t.Rule(), "question lost during verb phrase construction")
		}
		box = drs.SubjectQuestionOf(box, found)
	}
	return Sentence{Box: box}, nil
}

func (r *run) nounPhraseOf(t *tree.Tree) (NounPhrase, error) {
	v, err := r.eval(t)
	if err != nil {
		return nil, err
	}
	return asNounPhrase(v)
}
