package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uniflux/internal/store"
)

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "keys",
		Short:         "List persistence keys",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(rootOpts, cmd, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")

	return cmd
}

func runKeys(opts *RootOptions, cmd *cobra.Command, dbPath string) error {
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

	keys, err := db.Keys(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeDB, fmt.Sprintf("list keys: %v", err), nil)
		return WrapExitError(ExitCommandError, "list keys", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"keys": keys})
	}

	if len(keys) == 0 {
		fmt.Fprintln(formatter.Writer, "no snapshots")
		return nil
	}
	for _, key := range keys {
		fmt.Fprintln(formatter.Writer, key)
	}
	return nil
}
