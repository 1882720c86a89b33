package scenario

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crystal/internal/discourse"
	"crystal/internal/drs"
	"crystal/internal/logic"
	"crystal/internal/parse"
	"crystal/internal/session"
)

const aManWalks = `(S[RUL=2] (S[RUL=1] (NP[RUL=309] (DT[RUL=401] (Art a)) (Noun[SNS=man.n.01,NUM=sg,SEX=m] man)) (VP (CV_1 (Verb[SNS=walk.v.01,CLS=run-51.3.2] walks)))) (Pnct .))`

const walkerYAML = `
name: Walker
description: One statement and a broken expectation.
treebank:
  "a man walks .":
    - '` + aManWalks + `'
steps:
  - say: A man walks.
    expect:
      outcome: statement
      context_contains: ["man.n.01("]
  - say: A man walks.
    expect:
      outcome: question
  - say: Nobody is here.
    expect:
      outcome: no_parse
`

func engineFactory(t *testing.T) EngineFactory {
	t.Helper()
	return func(oracle parse.Oracle) (session.Processor, error) {
		if oracle == nil {
			tb, err := parse.LoadTreebank(filepath.Join("..", "..", "data", "treebank.yaml"))
			if err != nil {
				return nil, err
			}
			oracle = tb
		}
		finder := &logic.SATModelFinder{}
		return discourse.NewEngine(discourse.Options{
			Oracle: oracle,
			Bridge: logic.NewProver(finder, &logic.BoundedProver{Finder: finder}, nil),
		})
	}
}

func newTestRunner(t *testing.T, config RunConfig) (*Runner, *bytes.Buffer) {
	t.Helper()
	config.NoColor = true
	r := NewRunner(config, engineFactory(t))
	var buf bytes.Buffer
	r.SetOutput(&buf)
	return r, &buf
}

func TestParseRejectsEmptyScenarios(t *testing.T) {
	_, err := Parse([]byte("name: empty\n"))
	assert.ErrorContains(t, err, "has no steps")

	_, err = Parse([]byte("name: mute\nsteps:\n  - expect: {outcome: statement}\n"))
	assert.ErrorContains(t, err, "step 1 has nothing to say")

	_, err = Parse([]byte("name: odd\nsteps:\n  - say: Hi.\n    expect: {outcome: shrug}\n"))
	assert.ErrorContains(t, err, `expects unknown outcome "shrug"`)

	_, err = Parse([]byte("steps: [unclosed"))
	assert.ErrorContains(t, err, "parsing scenario YAML")
}

func TestRunReportsEachStep(t *testing.T) {
	s, err := Parse([]byte(walkerYAML))
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)

	r, out := newTestRunner(t, RunConfig{})
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalSteps)
	assert.Equal(t, 2, res.PassedSteps)
	assert.Equal(t, 1, res.FailedSteps)
	assert.False(t, res.Success)

	assert.True(t, res.Steps[0].Passed())
	assert.Equal(t, "statement", res.Steps[0].Outcome)
	assert.Equal(t, discourse.MsgStatementAdded, res.Steps[0].Result)
	require.Len(t, res.Steps[1].Failures, 1)
	assert.Contains(t, res.Steps[1].Failures[0], "expected outcome question, got statement")
	assert.Equal(t, "no_parse", res.Steps[2].Outcome)

	text := out.String()
	assert.Contains(t, text, "> Walker")
	assert.Contains(t, text, "-> Step 1: A man walks.")
	assert.Contains(t, text, "<= "+discourse.MsgStatementAdded)
	assert.Contains(t, text, "[WARN] "+discourse.MsgNoParse)
	assert.Contains(t, text, "3 total, 2 passed, 1 failed, 0 skipped")
	assert.Contains(t, text, "FAILED")
	assert.NotContains(t, text, "Inferred word senses", "comments only in verbose mode")
}

func TestRunStopsOnError(t *testing.T) {
	s, err := Parse([]byte(walkerYAML))
	require.NoError(t, err)

	r, _ := newTestRunner(t, RunConfig{StopOnError: true, Verbose: true})
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 1, res.SkippedSteps)
}

func TestRunVerbosePrintsComments(t *testing.T) {
	s, err := Parse([]byte(walkerYAML))
	require.NoError(t, err)
	s.Steps = s.Steps[:1]

	r, out := newTestRunner(t, RunConfig{Verbose: true})
	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, out.String(), "Found 1 parse trees.")
	assert.Contains(t, out.String(), "[C] [")
}

func TestRunExpectedError(t *testing.T) {
	s := &Scenario{
		Name:  "broken prover",
		Steps: []Step{{Say: "A man walks.", Expect: Expectation{Error: "prover crashed"}}},
	}
	factory := func(parse.Oracle) (session.Processor, error) { return failingProcessor{}, nil }
	r := NewRunner(RunConfig{NoColor: true}, factory)
	r.SetOutput(&bytes.Buffer{})

	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Error(t, res.Steps[0].Error)
}

func TestRunEngineFactoryFailure(t *testing.T) {
	boom := errors.New("no lexicon")
	r := NewRunner(RunConfig{NoColor: true}, func(parse.Oracle) (session.Processor, error) { return nil, boom })
	r.SetOutput(&bytes.Buffer{})

	res, err := r.Run(context.Background(), &Scenario{Name: "x", Steps: []Step{{Say: "hi"}}})
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Success)
}

func TestLoadAllScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walker.yaml"), []byte(walkerYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	scenarios, err := LoadAllScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "Walker", scenarios[0].Name)

	_, err = LoadAllScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

// The bundled dialogues double as regression fixtures.
func TestBundledScenarios(t *testing.T) {
	scenarios, err := LoadAllScenarios(filepath.Join("..", "..", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	r, out := newTestRunner(t, RunConfig{})
	results, ok := r.RunAll(context.Background(), scenarios)
	assert.True(t, ok, out.String())
	assert.Len(t, results, len(scenarios))
}

type failingProcessor struct{}

func (failingProcessor) Process(context.Context, string, *drs.Box, func(discourse.Event)) (*discourse.Outcome, error) {
	return nil, errors.New("prover crashed")
}
