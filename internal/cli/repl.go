package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crystal/internal/discourse"
	"crystal/internal/server"
	"crystal/internal/session"
	"crystal/internal/store"
)

const prompt = "> "

// REPL reads utterances line by line and answers them in one session.
// Lines starting with a slash are commands: /reset, /context, /history and
// /quit.
type REPL struct {
	engine   session.Processor
	session  *session.Session
	recorder server.TurnRecorder
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewREPL creates a REPL over sess. recorder and logger may be nil.
func NewREPL(engine session.Processor, sess *session.Session, recorder server.TurnRecorder, logger *zap.Logger, out io.Writer) *REPL {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &REPL{engine: engine, session: sess, recorder: recorder, logger: logger, out: out}
}

// Run processes lines from in until it is exhausted, /quit is read or ctx
// is cancelled. Utterances are processed one at a time.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprint(r.out, prompt)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-scanErr
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
			fmt.Fprint(r.out, prompt)
		}
	}
}

// handle processes one line and reports whether the REPL should stop.
func (r *REPL) handle(ctx context.Context, line string) bool {
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/reset":
		r.session.Reset()
		fmt.Fprintln(r.out, "Context cleared.")
		return false
	case "/context":
		fmt.Fprintln(r.out, r.session.GetContext().Summary())
		return false
	case "/history":
		for _, m := range r.session.GetHistory() {
			fmt.Fprintf(r.out, "%-6s %s\n", m.Role+":", m.Content)
		}
		return false
	}
	if strings.HasPrefix(line, "/") {
		fmt.Fprintf(r.out, "Unknown command %s (try /reset, /context, /history or /quit).\n", line)
		return false
	}

	out, err := r.session.Say(ctx, r.engine, line, func(ev discourse.Event) {
		printEvent(r.out, ev, r.verbose)
	})
	if err != nil {
		r.logger.Debug("utterance failed", zap.Error(err))
		return false
	}
	if r.recorder != nil {
		if err := r.recorder.InsertTurn(ctx, store.TurnFromOutcome(r.session.SessionID, line, out)); err != nil {
			r.logger.Warn("failed to record turn", zap.Error(err))
		}
	}
	return false
}

// printEvent writes an event for a terminal. Comments and context updates
// are only shown when verbose.
func printEvent(w io.Writer, ev discourse.Event, verbose bool) {
	switch ev.Kind {
	case discourse.EventResult:
		fmt.Fprintf(w, "%s\n", ev.Text)
	case discourse.EventProblem:
		fmt.Fprintf(w, "! %s\n", ev.Text)
	case discourse.EventComment:
		if verbose {
			for _, line := range strings.Split(ev.Text, "\n") {
				fmt.Fprintf(w, "# %s\n", line)
			}
		}
	case discourse.EventContext:
		if verbose {
			fmt.Fprintf(w, "# context: %s\n", ev.Context.Summary())
		}
	}
}

func (a *app) replCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Talk to the engine interactively",
		Long: `Start an interactive session. Statements are added to the context,
questions are answered against it.

Commands:
  /reset    clear the context
  /context  print the context
  /history  print the conversation
  /quit     leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cleanup, err := NewEngine(ctx, a.cfg, nil, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			recorder, closeStore := a.openRecorder()
			defer closeStore()

			repl := NewREPL(engine, session.NewSession(""), recorder, a.logger, cmd.OutOrStdout())
			repl.verbose = verbose
			return repl.Run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show parser and word sense comments")
	return cmd
}

// openRecorder connects the transcript store when one is configured. A
// connection failure disables transcripts with a warning.
func (a *app) openRecorder() (server.TurnRecorder, func()) {
	if !a.cfg.TranscriptsEnabled() {
		return nil, func() {}
	}
	st, err := store.NewStore(a.cfg.ConnectionString)
	if err != nil {
		a.logger.Warn("transcripts disabled", zap.Error(err))
		return nil, func() {}
	}
	return st, func() { _ = st.Close() }
}
