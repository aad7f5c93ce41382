package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uniflux/internal/store"
)

// SessionView is one row of the sessions command output.
type SessionView struct {
	ID      string `json:"id"`
	Events  int    `json:"events"`
	FirstAt string `json:"first_at"`
	LastAt  string `json:"last_at"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "sessions",
		Short:         "List recorded sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(rootOpts, cmd, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")

	return cmd
}

func runSessions(opts *RootOptions, cmd *cobra.Command, dbPath string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath, err := resolveDB(opts, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return err
	}

	db, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDB, fmt.Sprintf("open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	sessions, err := db.ListSessions(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeDB, fmt.Sprintf("list sessions: %v", err), nil)
		return WrapExitError(ExitCommandError, "list sessions", err)
	}

	views := make([]SessionView, len(sessions))
	for i, s := range sessions {
		views[i] = SessionView{
			ID:      s.ID,
			Events:  s.Events,
			FirstAt: s.FirstAt.Format("2006-01-02T15:04:05Z07:00"),
			LastAt:  s.LastAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"sessions": views})
	}

	if len(views) == 0 {
		fmt.Fprintln(formatter.Writer, "no recorded sessions")
		return nil
	}
	for _, v := range views {
		fmt.Fprintf(formatter.Writer, "%s  %d event(s)  %s .. %s\n", v.ID, v.Events, v.FirstAt, v.LastAt)
	}
	return nil
}
