package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"crystal/internal/config"
	"crystal/internal/discourse"
	"crystal/internal/drs"
	"crystal/internal/logic"
	"crystal/internal/parse"
	"crystal/internal/session"
	"crystal/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var treebankPath = filepath.Join("..", "..", "data", "treebank.yaml")

// echoProcessor treats every utterance ending in "." as a statement that
// adds one referent, and fails on anything else.
type echoProcessor struct{}

func (echoProcessor) Process(ctx context.Context, input string, current *drs.Box, emit func(discourse.Event)) (*discourse.Outcome, error) {
	if !strings.HasSuffix(input, ".") {
		emit(discourse.Event{Kind: discourse.EventProblem, Text: discourse.MsgNoParse})
		return nil, errors.New("no parse")
	}
	next := current.Copy()
	next.AddReferent(drs.NewAllocator().New(drs.SingularSort))
	emit(discourse.Event{Kind: discourse.EventComment, Text: "parsed"})
	emit(discourse.Event{Kind: discourse.EventResult, Text: discourse.MsgStatementAdded})
	emit(discourse.Event{Kind: discourse.EventContext, Context: next})
	return &discourse.Outcome{Kind: discourse.OutcomeStatement, Context: next, Text: discourse.MsgStatementAdded}, nil
}

type memoryRecorder struct {
	turns []*store.Turn
}

func (m *memoryRecorder) InsertTurn(ctx context.Context, turn *store.Turn) error {
	m.turns = append(m.turns, turn)
	return nil
}

func TestREPLProcessesLinesAndCommands(t *testing.T) {
	var out bytes.Buffer
	rec := &memoryRecorder{}
	sess := session.NewSession("repl-test")
	repl := NewREPL(echoProcessor{}, sess, rec, zap.NewNop(), &out)

	input := strings.Join([]string{
		"A man walks.",
		"",
		"what",
		"/context",
		"/history",
		"/bogus",
		"/reset",
		"/quit",
		"Never reached.",
	}, "\n")
	require.NoError(t, repl.Run(context.Background(), strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, discourse.MsgStatementAdded)
	assert.Contains(t, text, "! "+discourse.MsgNoParse)
	assert.NotContains(t, text, "# parsed", "comments are hidden unless verbose")
	assert.Contains(t, text, "user:  A man walks.")
	assert.Contains(t, text, "Unknown command /bogus")
	assert.Contains(t, text, "Context cleared.")

	assert.Len(t, rec.turns, 1, "failed utterances are not recorded")
	assert.Equal(t, "repl-test", rec.turns[0].SessionID)
	assert.True(t, sess.GetContext().Empty())
}

func TestREPLStopsAtEndOfInput(t *testing.T) {
	var out bytes.Buffer
	repl := NewREPL(echoProcessor{}, session.NewSession(""), nil, nil, &out)
	repl.verbose = true

	require.NoError(t, repl.Run(context.Background(), strings.NewReader("A man walks.\n")))
	assert.Contains(t, out.String(), "# parsed")
	assert.Contains(t, out.String(), "# context: ")
}

func TestREPLStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	repl := NewREPL(echoProcessor{}, session.NewSession(""), nil, nil, &out)
	assert.NoError(t, repl.Run(ctx, strings.NewReader("")))
}

func satEngine(t *testing.T) *discourse.Engine {
	t.Helper()
	tb, err := parse.LoadTreebank(treebankPath)
	require.NoError(t, err)
	finder := &logic.SATModelFinder{}
	engine, err := discourse.NewEngine(discourse.Options{
		Oracle: tb,
		Bridge: logic.NewProver(finder, &logic.BoundedProver{Finder: finder}, nil),
	})
	require.NoError(t, err)
	return engine
}

func TestConverseCarriesContext(t *testing.T) {
	var out bytes.Buffer
	final := converse(context.Background(), satEngine(t), []string{"A man walks.", "Who walks?"}, &out, false)

	text := out.String()
	assert.Contains(t, text, "> A man walks.\n")
	assert.Contains(t, text, discourse.MsgStatementAdded)
	assert.Contains(t, text, "The man.")
	assert.Contains(t, final.Summary(), "man.n.01(")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "DB_CONN_STRING",
		"CRYSTAL_MODEL_FINDER", "CRYSTAL_THEOREM_PROVER", "CRYSTAL_PARSER",
		"CRYSTAL_TREEBANK_PATH", "CRYSTAL_LEXICON_PATH", "CRYSTAL_PROVER_WORKERS",
		"CRYSTAL_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestAskCommandEndToEnd(t *testing.T) {
	clearEnv(t)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"ask", "--finder", "sat", "--prover", "sat", "--log-level", "error",
		"--treebank", treebankPath, "--context",
		"If a man owns a dog, he is happy.", "John is a man.", "John owns a dog.", "Is John happy?",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Yes.")
	assert.Contains(t, text, "context: ")
	assert.Contains(t, text, "man.n.01(s_John)")
}

func TestRootRejectsUnknownBackends(t *testing.T) {
	clearEnv(t)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"ask", "--finder", "oracle", "A man walks."})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "unknown model finder")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	clearEnv(t)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"history", "--treebank", treebankPath})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), errNoDatabase)
}

func TestNewOracleSelectsParser(t *testing.T) {
	cfg := &config.Config{Parser: config.ParserTreebank, TreebankPath: treebankPath}
	oracle, err := NewOracle(cfg)
	require.NoError(t, err)
	assert.IsType(t, &parse.Treebank{}, oracle)

	cfg = &config.Config{Parser: config.ParserCommand, ParserCmd: "parse-tool"}
	oracle, err = NewOracle(cfg)
	require.NoError(t, err)
	assert.IsType(t, &parse.CommandOracle{}, oracle)

	cfg = &config.Config{Parser: config.ParserHTTP, ParserURL: "http://localhost:9000/parse"}
	oracle, err = NewOracle(cfg)
	require.NoError(t, err)
	assert.IsType(t, &parse.HTTPOracle{}, oracle)

	cfg = &config.Config{Parser: config.ParserHTTP, ParserURL: "http://localhost:9000/parse", TreebankPath: treebankPath}
	oracle, err = NewOracle(cfg)
	require.NoError(t, err)
	require.IsType(t, parse.Chain{}, oracle)
	assert.Len(t, oracle.(parse.Chain), 2)

	cfg = &config.Config{Parser: config.ParserCommand, ParserCmd: "parse-tool", TreebankPath: "missing.yaml"}
	oracle, err = NewOracle(cfg)
	require.NoError(t, err)
	assert.IsType(t, &parse.CommandOracle{}, oracle)

	_, err = NewOracle(&config.Config{Parser: "telepathy"})
	assert.Error(t, err)

	_, err = NewOracle(&config.Config{Parser: config.ParserTreebank, TreebankPath: "missing.yaml"})
	assert.Error(t, err)
}

func TestCheckParserProbesHealth(t *testing.T) {
	var probed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.Path == "/health"
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","grammar":"english"}`))
	}))
	defer srv.Close()

	checkParser(context.Background(), &config.Config{Parser: config.ParserHTTP, ParserURL: srv.URL}, zap.NewNop())
	assert.True(t, probed)

	probed = false
	checkParser(context.Background(), &config.Config{Parser: config.ParserTreebank}, zap.NewNop())
	assert.False(t, probed)
}

func TestNewBridgeSelectsBackends(t *testing.T) {
	_, err := NewBridge(&config.Config{ModelFinder: config.FinderSAT, TheoremProver: config.ProverSAT}, zap.NewNop())
	require.NoError(t, err)

	_, err = NewBridge(&config.Config{ModelFinder: config.FinderMace4, TheoremProver: config.ProverProver9}, zap.NewNop())
	require.NoError(t, err)

	_, err = NewBridge(&config.Config{ModelFinder: "x", TheoremProver: config.ProverSAT}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewBridge(&config.Config{ModelFinder: config.FinderSAT, TheoremProver: "x"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadScenariosAcceptsFilesAndDirs(t *testing.T) {
	dir := filepath.Join("..", "..", "scenarios")
	all, err := loadScenarios([]string{dir})
	require.NoError(t, err)
	require.NotEmpty(t, all)

	one, err := loadScenarios([]string{filepath.Join(dir, "donkey.yaml")})
	require.NoError(t, err)
	require.Len(t, one, 1)

	_, err = loadScenarios([]string{filepath.Join(dir, "absent.yaml")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
