package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"crystal/internal/discourse"
	"crystal/internal/drs"
)

// converse feeds sentences to engine in order, streaming the events of each
// and carrying the context from one sentence to the next. It returns the
// final context.
func converse(ctx context.Context, engine *discourse.Engine, sentences []string, w io.Writer, verbose bool) *drs.Box {
	current := drs.New()
	for _, sentence := range sentences {
		fmt.Fprintf(w, "%s%s\n", prompt, sentence)
		for ev := range engine.Start(ctx, sentence, current) {
			if ev.Kind == discourse.EventContext {
				current = ev.Context
			}
			printEvent(w, ev, verbose)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return current
}

func (a *app) askCommand() *cobra.Command {
	var verbose, showContext bool
	cmd := &cobra.Command{
		Use:   "ask <sentence>...",
		Short: "Process sentences in order and print the replies",
		Example: `  crystal ask "A man walks." "Who walks?"
  crystal ask --finder sat --prover sat "John is a man." "Is John happy?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cleanup, err := NewEngine(ctx, a.cfg, nil, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			final := converse(ctx, engine, args, cmd.OutOrStdout(), verbose)
			if showContext {
				fmt.Fprintf(cmd.OutOrStdout(), "context: %s\n", final.Summary())
			}
			return ctx.Err()
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show parser and word sense comments")
	cmd.Flags().BoolVar(&showContext, "context", false, "Print the final context")
	return cmd
}
