package discourse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"crystal/internal/describe"
	"crystal/internal/drs"
	"crystal/internal/logic"
	"crystal/internal/parse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	aMan    = `(NP[RUL=309] (DT[RUL=401] (Art a)) (Noun[SNS=man.n.01,NUM=sg,SEX=m] man))`
	aDog    = `(NP[RUL=309] (DT[RUL=401] (Art a)) (Noun[SNS=dog.n.01,NUM=sg] dog))`
	he      = `(NP[RUL=301,NUM=sg] (Pro[CASE=sbj,SEX=m] he))`
	john    = `(NP[RUL=310] (PN[RUL=602,SEX=m] (PrpN john)))`
	walks   = `(VP (CV_1 (Verb[SNS=walk.v.01,CLS=run-51.3.2] walks)))`
	runs    = `(VP (CV_1 (Verb[SNS=run.v.01,CLS=run-51.3.2] run)))`
	isHappy = `(VP (CV_991 is) (PRED (Adj[SNS=happy.a.01] happy)))`
	ownsDog = `(VP (CV_2 (Verb[SNS=own.v.01,CLS=own-100] owns)) ` + aDog + `)`
)

func clause(subject, vp string) string {
	return `(S[RUL=1] ` + subject + ` ` + vp + `)`
}

func statement(s string) string {
	return `(S[RUL=2] ` + s + ` (Pnct .))`
}

func question(s string) string {
	return `(S[RUL=7] ` + s + ` (Pnct ?))`
}

func conditional(antecedent, consequent string) string {
	return statement(`(S[RUL=3] (Cond if) ` + antecedent + ` (Pnct ,) ` + consequent + `)`)
}

var treebank = map[string][]string{
	"a man walks .": {statement(clause(aMan, walks))},
	"does he run ?": {question(`(S[RUL=10] (AuxV[TYP=do] does) ` + he + ` ` + runs + `)`)},
	"does a man walk ?": {question(`(S[RUL=10] (AuxV[TYP=do] does) ` + aMan +
		` (VP (CV_1 (Verb[SNS=walk.v.01,CLS=run-51.3.2] walk))))`)},
	"who walks ?":                         {question(clause(`(Q[RUL=901] who)`, walks))},
	"john is a man .":                     {statement(clause(john, `(VP (CV_991 is) (PRED `+aMan+`))`))},
	"john owns a dog .":                   {statement(clause(john, ownsDog))},
	"is john happy ?":                     {question(`(S[RUL=8] (AuxV is) ` + john + ` (PRED (Adj[SNS=happy.a.01] happy)))`)},
	"if a man owns a dog , he is happy .": {conditional(clause(aMan, ownsDog), clause(he, isHappy))},
	"if a dog walks , he is happy .":      {conditional(clause(aDog, walks), clause(he, isHappy))},
	"he runs .": {
		`(S[RUL=999] (X he) (Y runs))`,
		statement(clause(he, `(VP (CV_1 (Verb[SNS=run.v.01,CLS=run-51.3.2] runs)))`)),
	},
}

type fakeRephraser struct {
	text string
	err  error
}

func (f *fakeRephraser) Rephrase(context.Context, string, string) (string, error) {
	return f.text, f.err
}

type brokenBridge struct{}

func (brokenBridge) IsConsistent(context.Context, *drs.Box) (bool, error) {
	return false, &logic.IntegrationError{Tool: "mace4", Output: "segfault"}
}

func (brokenBridge) IsProvable(context.Context, *drs.Box, *drs.Box) (bool, error) {
	return false, &logic.IntegrationError{Tool: "prover9", Output: "segfault"}
}

func newEngine(t *testing.T, modify func(*Options)) *Engine {
	t.Helper()
	oracle, err := parse.NewTreebank(treebank)
	require.NoError(t, err)
	finder := &logic.SATModelFinder{}
	opts := Options{
		Oracle:  oracle,
		Bridge:  logic.NewProver(finder, &logic.BoundedProver{Finder: finder}, nil),
		Workers: 4,
	}
	if modify != nil {
		modify(&opts)
	}
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

// say processes input and fails the test on error.
func say(t *testing.T, e *Engine, input string, current *drs.Box) (*Outcome, []Event) {
	t.Helper()
	var events []Event
	out, err := e.Process(context.Background(), input, current, func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)
	return out, events
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestNewEngineValidatesOptions(t *testing.T) {
	_, err := NewEngine(Options{Bridge: brokenBridge{}})
	assert.Error(t, err)

	oracle, err := parse.NewTreebank(nil)
	require.NoError(t, err)
	_, err = NewEngine(Options{Oracle: oracle})
	assert.Error(t, err)
}

func TestStatementIsAddedToContext(t *testing.T) {
	e := newEngine(t, nil)
	out, events := say(t, e, "A man walks.", nil)

	assert.Equal(t, OutcomeStatement, out.Kind)
	assert.True(t, out.Understood())
	assert.Equal(t, MsgStatementAdded, out.Text)
	assert.Equal(t, 1, out.Trees)
	assert.Equal(t, 1, out.Interpretations)

	refs := out.Context.Referents()
	require.Len(t, refs, 2)
	assert.True(t, out.Context.HasCondition(drs.NewPredicate("man.n.01", refs[0])))
	assert.True(t, out.Context.HasCondition(drs.NewPredicate("walk.v.01", refs[1])))

	assert.Equal(t, []EventKind{EventInput, EventComment, EventComment, EventComment, EventResult, EventContext}, kinds(events))
	assert.Equal(t, "A man walks.", events[0].Text)
	assert.Equal(t, "Found 1 parse trees.", events[1].Text)
	assert.Equal(t, MsgOneEvaluated, events[2].Text)
	assert.Contains(t, events[3].Text, "man: an adult person who is male")
	assert.Same(t, out.Context, events[5].Context)
}

func TestUndecidedPolarQuestion(t *testing.T) {
	e := newEngine(t, nil)
	first, _ := say(t, e, "A man walks.", nil)

	out, events := say(t, e, "Does he run?", first.Context)
	assert.Equal(t, OutcomeQuestion, out.Kind)
	assert.Equal(t, describe.Unknown, out.Answer.Kind)
	assert.Equal(t, "That is unknown.", out.Text)
	assert.Same(t, first.Context, out.Context, "questions leave the context alone")
	assert.Equal(t, EventResult, events[len(events)-1].Kind)

	pending := out.Box.Resolutions()
	assert.Empty(t, pending)
	man := first.Context.Referents()[0]
	assert.Contains(t, out.Box.String(), man.ID())
}

func TestSubjectQuestion(t *testing.T) {
	e := newEngine(t, nil)
	first, _ := say(t, e, "A man walks.", nil)

	out, _ := say(t, e, "Who walks?", first.Context)
	require.Equal(t, describe.Entities, out.Answer.Kind)
	require.Len(t, out.Answer.Referents, 1)
	assert.Same(t, first.Context.Referents()[0], out.Answer.Referents[0])
	assert.Equal(t, "The man.", out.Text)
}

func TestSubjectQuestionWithoutContext(t *testing.T) {
	e := newEngine(t, nil)
	out, _ := say(t, e, "Who walks?", nil)
	assert.Equal(t, OutcomeQuestion, out.Kind)
	assert.Empty(t, out.Answer.Referents)
	assert.Equal(t, "No known entities match the query.", out.Text)
}

func TestRephraserAppliesToEntityAnswers(t *testing.T) {
	e := newEngine(t, func(o *Options) { o.Rephraser = &fakeRephraser{text: "A walking man."} })
	first, _ := say(t, e, "A man walks.", nil)

	out, _ := say(t, e, "Who walks?", first.Context)
	assert.Equal(t, "A walking man.", out.Text)

	out, _ = say(t, e, "Does he run?", first.Context)
	assert.Equal(t, "That is unknown.", out.Text, "polar answers are not rephrased")
}

func TestRephraserFailureFallsBack(t *testing.T) {
	e := newEngine(t, func(o *Options) { o.Rephraser = &fakeRephraser{err: errors.New("quota")} })
	first, _ := say(t, e, "A man walks.", nil)

	out, _ := say(t, e, "Who walks?", first.Context)
	assert.Equal(t, "The man.", out.Text)
}

func TestConditionalStatement(t *testing.T) {
	e := newEngine(t, nil)
	out, _ := say(t, e, "If a man owns a dog, he is happy.", nil)

	require.Equal(t, OutcomeStatement, out.Kind)
	assert.Empty(t, out.Context.Referents())
	require.Equal(t, 1, out.Context.Len())
	imp, ok := out.Context.Conditions()[0].(*drs.Implication)
	require.True(t, ok)

	refs := imp.Antecedent.Referents()
	require.Len(t, refs, 2)
	man := refs[0]
	assert.True(t, imp.Consequent.HasCondition(drs.NewPredicate("happy.a.01", man)))
	assert.Empty(t, out.Context.Resolutions())
}

func TestModusPonens(t *testing.T) {
	e := newEngine(t, nil)
	current := drs.New()
	for _, input := range []string{
		"If a man owns a dog, he is happy.",
		"John is a man.",
		"John owns a dog.",
	} {
		out, _ := say(t, e, input, current)
		require.Equal(t, OutcomeStatement, out.Kind, input)
		current = out.Context
	}

	out, _ := say(t, e, "Is John happy?", current)
	assert.Equal(t, describe.Yes, out.Answer.Kind)
	assert.Equal(t, "Yes.", out.Text)
}

func TestRelaxedConditional(t *testing.T) {
	e := newEngine(t, nil)
	first, _ := say(t, e, "A man walks.", nil)
	man := first.Context.Referents()[0]

	out, _ := say(t, e, "If a dog walks, he is happy.", first.Context)
	require.Equal(t, OutcomeStatement, out.Kind)

	var imp *drs.Implication
	for _, c := range out.Box.Conditions() {
		if i, ok := c.(*drs.Implication); ok {
			imp = i
		}
	}
	require.NotNil(t, imp)
	assert.True(t, imp.Consequent.HasCondition(drs.NewPredicate("happy.a.01", man)),
		"the pronoun skips the dog and binds to the man of the context")
}

func TestContradictoryContext(t *testing.T) {
	e := newEngine(t, nil)
	alloc := drs.NewAllocator()
	x := alloc.New(drs.SingularSort)
	current := drs.New(x).With(
		drs.NewPredicate("dog.n.01", x),
		drs.NewNegation(drs.Wrap(drs.NewPredicate("dog.n.01", x))),
	)

	var events []Event
	out, err := e.Process(context.Background(), "Does a man walk?", current, func(ev Event) { events = append(events, ev) })
	assert.ErrorIs(t, err, ErrContradiction)
	assert.Nil(t, out)

	last := events[len(events)-1]
	assert.Equal(t, EventProblem, last.Kind)
	assert.Equal(t, MsgContradiction, last.Text)
}

func TestUntokenizableInput(t *testing.T) {
	e := newEngine(t, nil)
	current := drs.New()
	out, events := say(t, e, "a man @ home", current)

	assert.Equal(t, OutcomeUntokenizable, out.Kind)
	assert.False(t, out.Understood())
	assert.Same(t, current, out.Context)
	assert.Equal(t, []EventKind{EventInput, EventProblem}, kinds(events))
	assert.Equal(t, MsgTokenizeFailed, events[1].Text)
}

func TestNoParse(t *testing.T) {
	e := newEngine(t, nil)
	out, events := say(t, e, "A cat sleeps.", nil)

	assert.Equal(t, OutcomeNoParse, out.Kind)
	assert.Equal(t, MsgNoParse, out.Text)
	assert.Equal(t, []EventKind{EventInput, EventProblem}, kinds(events))
}

func TestNoConsistentInterpretation(t *testing.T) {
	e := newEngine(t, nil)
	out, events := say(t, e, "He runs.", nil)

	assert.Equal(t, OutcomeNoInterpretation, out.Kind)
	assert.Equal(t, 2, out.Trees)
	assert.Equal(t, 0, out.Interpretations)
	assert.NotNil(t, out.Tree, "the best ranked tree is reported")
	assert.Equal(t, "Evaluated 0 interpretations.", events[2].Text)
	assert.Equal(t, EventProblem, events[len(events)-1].Kind)
	assert.Equal(t, MsgNoInterpretation, events[len(events)-1].Text)
}

func TestBadTreeIsSkipped(t *testing.T) {
	e := newEngine(t, nil)
	first, _ := say(t, e, "A man walks.", nil)

	out, _ := say(t, e, "He runs.", first.Context)
	assert.Equal(t, OutcomeStatement, out.Kind)
	assert.Equal(t, 2, out.Trees)
	assert.Equal(t, 1, out.Interpretations)
}

func TestIntegrationErrorAbortsUtterance(t *testing.T) {
	e := newEngine(t, func(o *Options) { o.Bridge = brokenBridge{} })

	var events []Event
	_, err := e.Process(context.Background(), "A man walks.", nil, func(ev Event) { events = append(events, ev) })
	var integration *logic.IntegrationError
	require.ErrorAs(t, err, &integration)
	assert.Equal(t, "mace4", integration.Tool)
	assert.Equal(t, MsgInternalError, events[len(events)-1].Text)
}

func TestAnswerRejectsStatements(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Answer(context.Background(), drs.New(), nil)
	assert.Error(t, err)
}

func TestStartStreamsEvents(t *testing.T) {
	e := newEngine(t, nil)

	var got []Event
	for ev := range e.Start(context.Background(), "A man walks.", nil) {
		got = append(got, ev)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, EventInput, got[0].Kind)
	last := got[len(got)-1]
	assert.Equal(t, EventContext, last.Kind)
	assert.Len(t, last.Context.Referents(), 2)
}

func TestStartStopsOnCancel(t *testing.T) {
	e := newEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []Event
	for ev := range e.Start(ctx, "A man walks.", nil) {
		got = append(got, ev)
	}
	for _, ev := range got {
		assert.NotEqual(t, EventContext, ev.Kind)
	}
}
