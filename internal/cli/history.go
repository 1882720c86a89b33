package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"crystal/internal/store"
)

// transcriptReader is the read side of the transcript store.
type transcriptReader interface {
	ListTurns(ctx context.Context, sessionID string) ([]store.Turn, error)
	ListSessions(ctx context.Context) ([]store.SessionSummary, error)
}

func (a *app) historyCommand() *cobra.Command {
	var sessionID string
	var remove bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded transcripts",
		Long:  "Without --session, lists every recorded session. With --session, prints that session's turns.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.TranscriptsEnabled() {
				return errNoDatabase
			}
			st, err := store.NewStore(a.cfg.ConnectionString)
			if err != nil {
				return err
			}
			defer st.Close()

			if remove {
				if sessionID == "" {
					return fmt.Errorf("--delete requires --session")
				}
				n, err := st.DeleteSession(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d turns of session %s.\n", n, sessionID)
				return nil
			}
			return RunHistory(cmd.Context(), st, sessionID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session whose turns to print")
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the transcript of --session")
	return cmd
}

// RunHistory prints the session list, or the turns of sessionID when set.
func RunHistory(ctx context.Context, r transcriptReader, sessionID string, w io.Writer) error {
	if sessionID == "" {
		sessions, err := r.ListSessions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Found %d sessions.\n", len(sessions))
		for _, s := range sessions {
			fmt.Fprintf(w, "%s  %d turns  %s .. %s\n", s.SessionID, s.Turns,
				s.StartedAt.Format(time.RFC3339), s.LastTurnAt.Format(time.RFC3339))
		}
		return nil
	}

	turns, err := r.ListTurns(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n--- Transcript for session: %s ---\n", sessionID)
	fmt.Fprintf(w, "Found %d turns.\n\n", len(turns))
	for i, turn := range turns {
		fmt.Fprintf(w, "===========================================\n")
		fmt.Fprintf(w, "Turn %d | Outcome: %s\n", i+1, turn.Outcome)
		fmt.Fprintf(w, "Created At: %s\n", turn.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "-------------------------------------------\n")
		fmt.Fprintf(w, "> %s\n", turn.Utterance)
		if turn.Result != "" {
			fmt.Fprintln(w, turn.Result)
		}
		if turn.ContextSummary != "" {
			fmt.Fprintf(w, "Context: %s\n", turn.ContextSummary)
		}
		fmt.Fprintf(w, "===========================================\n\n")
	}
	return nil
}
