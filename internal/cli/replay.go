package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/uniflux/internal/demo"
	"github.com/roach88/uniflux/internal/engine"
	"github.com/roach88/uniflux/internal/store"
)

// ReplayView is the replay command's output payload.
type ReplayView struct {
	Session string     `json:"session"`
	Events  int        `json:"events"`
	Final   demo.State `json:"final"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath, session string
	var timed bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded session against a fresh store",
		Long: `Replay a recorded session: decode its events, dispatch them through a
fresh store in order, and print the resulting state. With --timed the
original inter-event gaps are honored; the default replays instantly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd, dbPath, session, timed)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "snapshot database path")
	cmd.Flags().StringVar(&session, "session", "", "session id to replay (required)")
	cmd.Flags().BoolVar(&timed, "timed", false, "honor the original inter-event gaps")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command, dbPath, session string, timed bool) error {
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

	ctx := cmd.Context()
	rows, err := db.ReadRecording(ctx, session)
	if err != nil {
		_ = formatter.Error(ErrCodeDB, fmt.Sprintf("read recording: %v", err), nil)
		return WrapExitError(ExitCommandError, "read recording", err)
	}
	if len(rows) == 0 {
		msg := fmt.Sprintf("no recorded session %q", session)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	recorder, err := seedRecorder(rows, timed)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "decode recording", err)
	}

	s, err := engine.New(demo.DefaultState,
		engine.WithRecorder(recorder),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("build store: %v", err), nil)
		return WrapExitError(ExitFailure, "build store", err)
	}
	s.AddReducer(demo.Reducer)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = s.Run(runCtx)
	}()

	if err := s.Replay(ctx); err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("replay: %v", err), nil)
		return WrapExitError(ExitFailure, "replay", err)
	}
	if err := s.WaitForEventsProcessed(ctx, 30*time.Second); err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("replay: %v", err), nil)
		return WrapExitError(ExitFailure, "replay", err)
	}

	final := *(s.State().Persistent.(*demo.State))
	if err := s.Close(ctx); err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("close store: %v", err), nil)
		return WrapExitError(ExitFailure, "close store", err)
	}
	<-runDone

	formatter.VerboseLog("Replayed %d event(s) from session %s", len(rows), session)

	view := ReplayView{Session: session, Events: len(rows), Final: final}
	if formatter.Format == "json" {
		return formatter.Success(view)
	}
	fmt.Fprintf(formatter.Writer, "session:  %s\n", view.Session)
	fmt.Fprintf(formatter.Writer, "events:   %d\n", view.Events)
	fmt.Fprintf(formatter.Writer, "counter:  %d\n", view.Final.Counter)
	fmt.Fprintf(formatter.Writer, "name:     %s\n", view.Final.Name)
	return nil
}

// seedRecorder decodes the journal rows into a recorder primed with the
// original timestamps, so replay reproduces the recorded gaps.
func seedRecorder(rows []store.RecordedRow, timed bool) (*engine.Recorder, error) {
	times := make([]time.Time, len(rows))
	for i, row := range rows {
		times[i] = row.RecordedAt
	}

	idx := 0
	opts := []engine.RecorderOption{
		engine.WithRecorderNow(func() time.Time {
			t := times[idx]
			idx++
			return t
		}),
	}
	if !timed {
		opts = append(opts, engine.WithRecorderSleep(func(context.Context, time.Duration) error {
			return nil
		}))
	}

	recorder := engine.NewRecorder(opts...)
	for _, row := range rows {
		ev, err := demo.DecodeEvent(row.Kind, row.Payload)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", row.Index, err)
		}
		recorder.Record(ev)
	}
	return recorder, nil
}
