// Package config reads the engine and front-end settings from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by the CRYSTAL_MODEL_FINDER, CRYSTAL_THEOREM_PROVER
// and CRYSTAL_PARSER variables.
const (
	FinderMace4   = "mace4"
	FinderSAT     = "sat"
	ProverProver9 = "prover9"
	ProverSAT     = "sat"

	ParserTreebank = "treebank"
	ParserCommand  = "command"
	ParserHTTP     = "http"
)

// Config holds every setting of the engine and its front ends.
type Config struct {
	Mace4Path     string
	Prover9Path   string
	ModelFinder   string
	TheoremProver string

	Parser       string
	TreebankPath string
	ParserCmd    string
	ParserURL    string

	LexiconPath   string
	ProverWorkers int
	LogLevel      string

	// ConnectionString is empty when transcripts are disabled.
	ConnectionString string
	// GeminiAPIKey is empty when rephrasing is disabled.
	GeminiAPIKey string

	HTTPAddr   string
	SessionTTL time.Duration
}

// Load reads the configuration from the environment, applying defaults for
// unset variables.
func Load() (*Config, error) {
	workers, err := getEnvInt("CRYSTAL_PROVER_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	ttl, err := getEnvDuration("CRYSTAL_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Mace4Path:        getEnv("CRYSTAL_MACE4_PATH", "prover/mace4"),
		Prover9Path:      getEnv("CRYSTAL_PROVER9_PATH", "prover/prover9"),
		ModelFinder:      strings.ToLower(getEnv("CRYSTAL_MODEL_FINDER", FinderMace4)),
		TheoremProver:    strings.ToLower(getEnv("CRYSTAL_THEOREM_PROVER", ProverProver9)),
		Parser:           strings.ToLower(getEnv("CRYSTAL_PARSER", ParserTreebank)),
		TreebankPath:     getEnv("CRYSTAL_TREEBANK_PATH", "data/treebank.yaml"),
		ParserCmd:        os.Getenv("CRYSTAL_PARSER_CMD"),
		ParserURL:        os.Getenv("CRYSTAL_PARSER_URL"),
		LexiconPath:      os.Getenv("CRYSTAL_LEXICON_PATH"),
		ProverWorkers:    workers,
		LogLevel:         getEnv("CRYSTAL_LOG_LEVEL", "info"),
		ConnectionString: os.Getenv("DB_CONN_STRING"),
		GeminiAPIKey:     getAPIKey(),
		HTTPAddr:         getEnv("CRYSTAL_HTTP_ADDR", ":8080"),
		SessionTTL:       ttl,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.ModelFinder {
	case FinderMace4, FinderSAT:
	default:
		return fmt.Errorf("unknown model finder %q (want %s or %s)", c.ModelFinder, FinderMace4, FinderSAT)
	}
	switch c.TheoremProver {
	case ProverProver9, ProverSAT:
	default:
		return fmt.Errorf("unknown theorem prover %q (want %s or %s)", c.TheoremProver, ProverProver9, ProverSAT)
	}
	switch c.Parser {
	case ParserTreebank:
		if c.TreebankPath == "" {
			return fmt.Errorf("parser %s needs CRYSTAL_TREEBANK_PATH", c.Parser)
		}
	case ParserCommand:
		if c.ParserCmd == "" {
			return fmt.Errorf("parser %s needs CRYSTAL_PARSER_CMD", c.Parser)
		}
	case ParserHTTP:
		if c.ParserURL == "" {
			return fmt.Errorf("parser %s needs CRYSTAL_PARSER_URL", c.Parser)
		}
	default:
		return fmt.Errorf("unknown parser %q", c.Parser)
	}
	if c.ProverWorkers < 1 {
		return fmt.Errorf("CRYSTAL_PROVER_WORKERS must be at least 1, got %d", c.ProverWorkers)
	}
	return nil
}

// TranscriptsEnabled reports whether a database is configured.
func (c *Config) TranscriptsEnabled() bool {
	return c.ConnectionString != ""
}

// getAPIKey looks for GEMINI_API_KEY first, then falls back to GOOGLE_API_KEY
func getAPIKey() string {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		return apiKey
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
