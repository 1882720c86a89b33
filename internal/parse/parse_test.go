package parse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crystal/internal/tree"
)

const manWalks = `(S[RUL=1] (NP[RUL=305,NUM=sg] (DT[RUL=402] (Art a)) (Noun[SNS=man.n.01,NUM=sg,SEX=m] man)) (VP[RUL=101] (CV_1[SNS=walk.v.01,CLS=run-51.3.2] walks)))`

type fakeRunner struct {
	output  string
	err     error
	command string
	input   string
}

func (f *fakeRunner) Run(_ context.Context, command, input string) (string, error) {
	f.command, f.input = command, input
	return f.output, f.err
}

// =============================================================================
// Oracles
// =============================================================================

func TestTreebankParse(t *testing.T) {
	tb, err := NewTreebank(map[string][]string{
		"A man walks .": {manWalks, manWalks},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tb.Len())

	trees, err := tb.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "S", trees[0].Category)

	trees[0].Category = "X"
	again, err := tb.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	assert.Equal(t, "S", again[0].Category, "stored trees are copied")

	_, err = tb.Parse(context.Background(), []string{"nobody", "walks"})
	assert.ErrorIs(t, err, ErrNoTrees)
}

func TestNewTreebankRejectsBadTrees(t *testing.T) {
	_, err := NewTreebank(map[string][]string{"a man": {"(NP"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a man"`)
}

func TestLoadTreebank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treebank.yaml")
	content := "\"a man walks .\":\n  - '" + manWalks + "'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tb, err := LoadTreebank(path)
	require.NoError(t, err)
	trees, err := tb.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	_, err = LoadTreebank(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCommandOracle(t *testing.T) {
	runner := &fakeRunner{output: manWalks + "\n\n" + manWalks + "\n"}
	oracle := &CommandOracle{Command: "parser --grammar g.fcfg", Runner: runner}

	trees, err := oracle.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	assert.Len(t, trees, 2)
	assert.Equal(t, "parser --grammar g.fcfg", runner.command)
	assert.Equal(t, "a man walks .\n", runner.input)
}

func TestCommandOracleFailures(t *testing.T) {
	_, err := (&CommandOracle{Runner: &fakeRunner{output: "\n"}}).Parse(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrNoTrees)

	_, err = (&CommandOracle{Runner: &fakeRunner{output: "(S"}}).Parse(context.Background(), []string{"x"})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = (&CommandOracle{Runner: &fakeRunner{err: boom}}).Parse(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func TestHTTPOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
		case "/parse":
			var req ParseRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if len(req.Tokens) == 1 {
				_ = json.NewEncoder(w).Encode(ParseResponse{})
				return
			}
			_ = json.NewEncoder(w).Encode(ParseResponse{Trees: []string{manWalks}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(srv.URL)
	health, err := oracle.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	trees, err := oracle.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "1", trees[0].Rule())

	_, err = oracle.Parse(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrNoTrees)
}

func TestHTTPOracleServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "grammar not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPOracle(srv.URL).Parse(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parser error 500")
}

func TestChain(t *testing.T) {
	empty, err := NewTreebank(nil)
	require.NoError(t, err)
	full, err := NewTreebank(map[string][]string{"a man walks .": {manWalks}})
	require.NoError(t, err)

	trees, err := Chain{empty, full}.Parse(context.Background(), []string{"a", "man", "walks", "."})
	require.NoError(t, err)
	assert.Len(t, trees, 1)

	_, err = Chain{empty}.Parse(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrNoTrees)
}

func TestCountLabel(t *testing.T) {
	assert.Equal(t, "3", CountLabel(3))
	assert.Equal(t, "10000+", CountLabel(MaxTrees))
}

// =============================================================================
// Ranking
// =============================================================================

func TestGrade(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"terminal under S", "(S (NP (Noun dog)) barks)", 2000},
		{"preposition under VP", "(VP (Verb[FRQ=3] switch) (Prep on))", 1003},
		{"closed-class noun", "(NP (Noun the))", -500},
		{"closed-class preposition is fine", "(PP (Prep the))", 0},
		{"frequency", "(NP (Noun[FRQ=12] dog) (Adj[FRQ=4] big))", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tree.MustParse(tt.src)))
		})
	}
}

func TestRankIsStableAndDescending(t *testing.T) {
	low := tree.MustParse("(NP (Noun the))")
	mid1 := tree.MustParse("(NP (Noun dog))")
	mid2 := tree.MustParse("(NP (Noun cat))")
	high := tree.MustParse("(NP (Noun[FRQ=5] dog))")

	trees := []*tree.Tree{low, mid1, high, mid2}
	Rank(trees)
	assert.Equal(t, []*tree.Tree{high, mid1, mid2, low}, trees)
}
