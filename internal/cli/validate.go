package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate projection specs in a directory",
		Long: `Validate all CUE projection specs in a directory: load them, compile
the projections, and report any errors with file positions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command, dir string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	formatter.VerboseLog("Validating projection specs in %s", dir)

	result, err := LoadProjectionSpecs(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			var details any
			if loadErr.Pos.IsValid() {
				details = map[string]any{
					"file":   loadErr.Pos.Filename(),
					"line":   loadErr.Pos.Line(),
					"column": loadErr.Pos.Column(),
				}
			}
			_ = formatter.Error(loadErr.Code, loadErr.Message, details)
			return WrapExitError(exitCodeForLoadError(loadErr), "validation failed", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	formatter.VerboseLog("Loaded %d CUE file(s)", result.FileCount)

	names := make([]string, len(result.Projections))
	for i, p := range result.Projections {
		names[i] = p.Name
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"files":       result.FileCount,
			"projections": names,
		})
	}

	fmt.Fprintf(formatter.Writer, "OK: %d projection(s) in %d file(s)\n", len(names), result.FileCount)
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	return nil
}

// exitCodeForLoadError distinguishes environment problems (missing
// directory, unreadable files) from spec validation failures.
func exitCodeForLoadError(err *LoadError) int {
	switch err.Code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles, ErrCodeDB:
		return ExitCommandError
	default:
		return ExitFailure
	}
}
