package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"crystal/internal/store"
)

var errNoDatabase = errors.New("no database configured (set DB_CONN_STRING or --db)")

func (a *app) initDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the transcript schema",
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

			if err := st.InitDB(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database initialized successfully.")
			return nil
		},
	}
}
