package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/uniflux/internal/demo"
	"github.com/roach88/uniflux/internal/harness"
	"github.com/roach88/uniflux/internal/store"
)

// recordSpacing is the synthetic inter-event gap written for imported
// scenarios, which carry no timing of their own.
const recordSpacing = 100 * time.Millisecond

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath, session, scenarioPath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Import a scenario's event stream as a recorded session",
		Long: `Import the event stream of a scenario YAML file into the recordings
journal, so it can be replayed later with the replay command. Events
are spaced 100ms apart.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(rootOpts, cmd, dbPath, session, scenarioPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")
	cmd.Flags().StringVar(&session, "session", "", "session id (default: new UUIDv7)")
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario YAML file (required)")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

func runRecord(opts *RootOptions, cmd *cobra.Command, dbPath, session, scenarioPath string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath, err := resolveDB(opts, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return err
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("load scenario: %v", err), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	if session == "" {
		session = uuid.Must(uuid.NewV7()).String()
	}

	db, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDB, fmt.Sprintf("open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	at := time.Now().UTC()
	for i, step := range scenario.Events {
		ev, err := step.Event()
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("events[%d]: %v", i, err), nil)
			return WrapExitError(ExitCommandError, "convert event", err)
		}
		kind, payload, err := demo.EncodeEvent(ev)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("events[%d]: %v", i, err), nil)
			return WrapExitError(ExitCommandError, "encode event", err)
		}
		row := store.RecordedRow{
			SessionID:  session,
			Index:      i,
			Kind:       kind,
			Payload:    payload,
			RecordedAt: at,
		}
		if err := db.AppendRecording(ctx, row); err != nil {
			_ = formatter.Error(ErrCodeDB, fmt.Sprintf("append recording: %v", err), nil)
			return WrapExitError(ExitCommandError, "append recording", err)
		}
		at = at.Add(recordSpacing)
	}

	formatter.VerboseLog("Recorded %d event(s) from %s", len(scenario.Events), scenarioPath)

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"session": session,
			"events":  len(scenario.Events),
		})
	}
	fmt.Fprintf(formatter.Writer, "recorded session %s (%d events)\n", session, len(scenario.Events))
	return nil
}
