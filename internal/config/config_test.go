package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"CRYSTAL_MACE4_PATH", "CRYSTAL_PROVER9_PATH", "CRYSTAL_MODEL_FINDER",
	"CRYSTAL_THEOREM_PROVER", "CRYSTAL_PARSER", "CRYSTAL_TREEBANK_PATH",
	"CRYSTAL_PARSER_CMD", "CRYSTAL_PARSER_URL", "CRYSTAL_LEXICON_PATH",
	"CRYSTAL_PROVER_WORKERS", "CRYSTAL_LOG_LEVEL", "DB_CONN_STRING",
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "CRYSTAL_HTTP_ADDR", "CRYSTAL_SESSION_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prover/mace4", cfg.Mace4Path)
	assert.Equal(t, "prover/prover9", cfg.Prover9Path)
	assert.Equal(t, FinderMace4, cfg.ModelFinder)
	assert.Equal(t, ProverProver9, cfg.TheoremProver)
	assert.Equal(t, ParserTreebank, cfg.Parser)
	assert.Equal(t, 1, cfg.ProverWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Empty(t, cfg.LexiconPath)
	assert.False(t, cfg.TranscriptsEnabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CRYSTAL_MODEL_FINDER", "SAT")
	t.Setenv("CRYSTAL_THEOREM_PROVER", "sat")
	t.Setenv("CRYSTAL_PARSER", "http")
	t.Setenv("CRYSTAL_PARSER_URL", "http://localhost:9000")
	t.Setenv("CRYSTAL_PROVER_WORKERS", "4")
	t.Setenv("DB_CONN_STRING", "postgres://localhost:5432/crystal?sslmode=disable")
	t.Setenv("CRYSTAL_SESSION_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FinderSAT, cfg.ModelFinder)
	assert.Equal(t, ProverSAT, cfg.TheoremProver)
	assert.Equal(t, ParserHTTP, cfg.Parser)
	assert.Equal(t, "http://localhost:9000", cfg.ParserURL)
	assert.Equal(t, 4, cfg.ProverWorkers)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.TranscriptsEnabled())
}

func TestLoadAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "google-key", cfg.GeminiAPIKey)

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.GeminiAPIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"workers not a number", map[string]string{"CRYSTAL_PROVER_WORKERS": "many"}, "invalid CRYSTAL_PROVER_WORKERS"},
		{"workers zero", map[string]string{"CRYSTAL_PROVER_WORKERS": "0"}, "must be at least 1"},
		{"bad ttl", map[string]string{"CRYSTAL_SESSION_TTL": "soon"}, "invalid CRYSTAL_SESSION_TTL"},
		{"unknown finder", map[string]string{"CRYSTAL_MODEL_FINDER": "z3"}, "unknown model finder"},
		{"unknown prover", map[string]string{"CRYSTAL_THEOREM_PROVER": "vampire"}, "unknown theorem prover"},
		{"unknown parser", map[string]string{"CRYSTAL_PARSER": "magic"}, "unknown parser"},
		{"command parser without command", map[string]string{"CRYSTAL_PARSER": "command"}, "needs CRYSTAL_PARSER_CMD"},
		{"http parser without url", map[string]string{"CRYSTAL_PARSER": "http"}, "needs CRYSTAL_PARSER_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
