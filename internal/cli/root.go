// Package cli implements the crystal command line: an interactive REPL,
// one-shot questions, scenario runs, the HTTP server and transcript tools.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crystal/internal/config"
	"crystal/internal/logging"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// overrides are the persistent flags that replace environment settings.
type overrides struct {
	logLevel string
	parser   string
	treebank string
	finder   string
	prover   string
	lexicon  string
	workers  int
	db       string
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("parser") {
		cfg.Parser = o.parser
	}
	if flags.Changed("treebank") {
		cfg.TreebankPath = o.treebank
	}
	if flags.Changed("finder") {
		cfg.ModelFinder = o.finder
	}
	if flags.Changed("prover") {
		cfg.TheoremProver = o.prover
	}
	if flags.Changed("lexicon") {
		cfg.LexiconPath = o.lexicon
	}
	if flags.Changed("workers") {
		cfg.ProverWorkers = o.workers
	}
	if flags.Changed("db") {
		cfg.ConnectionString = o.db
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var o overrides

	root := &cobra.Command{
		Use:           "crystal",
		Short:         "Discourse representation engine for English sentences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			o.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&o.parser, "parser", config.ParserTreebank, "Parser oracle (treebank, command, http)")
	pf.StringVar(&o.treebank, "treebank", "", "Treebank YAML file for the treebank parser")
	pf.StringVar(&o.finder, "finder", config.FinderMace4, "Model finder (mace4, sat)")
	pf.StringVar(&o.prover, "prover", config.ProverProver9, "Theorem prover (prover9, sat)")
	pf.StringVar(&o.lexicon, "lexicon", "", "Lexicon YAML file (default: embedded lexicon)")
	pf.IntVar(&o.workers, "workers", 1, "Concurrent proof attempts for wh-questions")
	pf.StringVar(&o.db, "db", "", "Database connection string (overrides DB_CONN_STRING)")

	root.AddCommand(
		a.replCommand(),
		a.askCommand(),
		a.scenarioCommand(),
		a.serveCommand(),
		a.initDBCommand(),
		a.historyCommand(),
	)
	return root
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
