package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"crystal/internal/agent"
	"crystal/internal/config"
	"crystal/internal/discourse"
	"crystal/internal/lexicon"
	"crystal/internal/logic"
	"crystal/internal/parse"
)

// NewOracle builds the parser oracle selected by cfg. An external parser is
// consulted only for sentences missing from the treebank file, when that
// file exists.
func NewOracle(cfg *config.Config) (parse.Oracle, error) {
	var external parse.Oracle
	switch cfg.Parser {
	case config.ParserTreebank:
		tb, err := parse.LoadTreebank(cfg.TreebankPath)
		if err != nil {
			return nil, err
		}
		return tb, nil
	case config.ParserCommand:
		external = &parse.CommandOracle{Command: cfg.ParserCmd, Runner: logic.ExecRunner{}}
	case config.ParserHTTP:
		external = parse.NewHTTPOracle(cfg.ParserURL)
	default:
		return nil, fmt.Errorf("unknown parser %q", cfg.Parser)
	}

	if cfg.TreebankPath == "" {
		return external, nil
	}
	if _, err := os.Stat(cfg.TreebankPath); err != nil {
		return external, nil
	}
	tb, err := parse.LoadTreebank(cfg.TreebankPath)
	if err != nil {
		return nil, err
	}
	return parse.Chain{tb, external}, nil
}

// checkParser probes the parser service when one is configured. An
// unreachable service is logged, not fatal.
func checkParser(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	if cfg.Parser != config.ParserHTTP {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := parse.NewHTTPOracle(cfg.ParserURL).Health(ctx)
	if err != nil {
		logger.Warn("parser service unavailable", zap.String("url", cfg.ParserURL), zap.Error(err))
		return
	}
	logger.Info("parser service ready", zap.String("status", health.Status), zap.String("grammar", health.Grammar))
}

// NewBridge builds the inference bridge from the configured backends.
func NewBridge(cfg *config.Config, logger *zap.Logger) (*logic.Prover, error) {
	var finder logic.ModelFinder
	switch cfg.ModelFinder {
	case config.FinderMace4:
		finder = &logic.Mace4{Path: cfg.Mace4Path, Runner: logic.ExecRunner{}}
	case config.FinderSAT:
		finder = &logic.SATModelFinder{}
	default:
		return nil, fmt.Errorf("unknown model finder %q", cfg.ModelFinder)
	}

	var prover logic.TheoremProver
	switch cfg.TheoremProver {
	case config.ProverProver9:
		prover = &logic.Prover9{Path: cfg.Prover9Path, Runner: logic.ExecRunner{}}
	case config.ProverSAT:
		prover = &logic.BoundedProver{Finder: finder}
	default:
		return nil, fmt.Errorf("unknown theorem prover %q", cfg.TheoremProver)
	}

	return logic.NewProver(finder, prover, logger.Named("logic")), nil
}

// NewEngine wires an engine from cfg. oracle overrides the configured
// parser when non-nil. The returned function releases the rephraser.
func NewEngine(ctx context.Context, cfg *config.Config, oracle parse.Oracle, logger *zap.Logger) (*discourse.Engine, func(), error) {
	var err error
	if oracle == nil {
		if oracle, err = NewOracle(cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to create parser: %w", err)
		}
	}

	var lex *lexicon.Lexicon
	if cfg.LexiconPath != "" {
		if lex, err = lexicon.Load(cfg.LexiconPath); err != nil {
			return nil, nil, err
		}
	}

	bridge, err := NewBridge(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := discourse.Options{
		Oracle:  oracle,
		Lexicon: lex,
		Bridge:  bridge,
		Workers: cfg.ProverWorkers,
		Logger:  logger.Named("discourse"),
	}

	cleanup := func() {}
	rephraser, err := agent.NewRephraser(ctx, cfg.GeminiAPIKey, logger.Named("agent"))
	if err != nil {
		logger.Warn("rephrasing disabled", zap.Error(err))
	} else if rephraser != nil {
		opts.Rephraser = rephraser
		cleanup = rephraser.Close
	}

	engine, err := discourse.NewEngine(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}
