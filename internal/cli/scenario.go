package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crystal/internal/parse"
	"crystal/internal/scenario"
	"crystal/internal/session"
)

// loadScenarios reads every path, which may be a scenario file or a
// directory of them.
func loadScenarios(paths []string) ([]*scenario.Scenario, error) {
	var out []*scenario.Scenario
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			all, err := scenario.LoadAllScenarios(p)
			if err != nil {
				return nil, err
			}
			out = append(out, all...)
			continue
		}
		s, err := scenario.LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (a *app) scenarioCommand() *cobra.Command {
	var cfg scenario.RunConfig
	var list bool
	cmd := &cobra.Command{
		Use:   "scenario [file|dir]...",
		Short: "Run scripted dialogues and check the replies",
		Long: `Run YAML dialogue scenarios. Each scenario runs in a fresh session; a
scenario with an inline treebank uses it instead of the configured parser.
Without arguments the scenarios directory is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"scenarios"}
			}
			scenarios, err := loadScenarios(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				for _, s := range scenarios {
					fmt.Fprintf(out, "  %-30s %d steps\n", s.Name, len(s.Steps))
					if s.Description != "" {
						fmt.Fprintf(out, "    %s\n", s.Description)
					}
				}
				return nil
			}

			var cleanups []func()
			defer func() {
				for _, c := range cleanups {
					c()
				}
			}()
			factory := func(oracle parse.Oracle) (session.Processor, error) {
				engine, cleanup, err := NewEngine(cmd.Context(), a.cfg, oracle, a.logger)
				if err != nil {
					return nil, err
				}
				cleanups = append(cleanups, cleanup)
				return engine, nil
			}

			runner := scenario.NewRunner(cfg, factory)
			runner.SetOutput(out)
			if _, ok := runner.RunAll(cmd.Context(), scenarios); !ok {
				return fmt.Errorf("scenarios failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Print every event")
	cmd.Flags().BoolVar(&cfg.NoColor, "no-color", false, "Disable color output")
	cmd.Flags().BoolVar(&cfg.StopOnError, "stop-on-error", false, "Stop a scenario at its first failing step")
	cmd.Flags().BoolVar(&list, "list", false, "List the scenarios instead of running them")
	return cmd
}
