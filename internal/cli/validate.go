package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/harness"
)

// ValidationIssue is one file that failed to validate.
type ValidationIssue struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds the outcome of the validate command.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Checked int               `json:"checked"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenario.yaml ...]",
		Short: "Validate settings and scenario files",
		Long: `Validate the settings file given with --config and any scenario files,
without running anything.

Settings are checked against the embedded CUE schema (.cue) or decoded
strictly (.yaml). Scenarios are checked for unknown fields, unknown kinds
and malformed steps or assertions.

Examples:
  rewind validate --config rewind.cue
  rewind validate scenarios/*.yaml
  rewind validate --config rewind.yaml scenarios/drag.yaml --format json`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenarios []string, cmd *cobra.Command) error {
	if opts.Config == "" && len(scenarios) == 0 {
		return NewExitError(ExitCommandError, "nothing to validate: pass --config or scenario files")
	}
	opts.configureLogging(cmd.ErrOrStderr())

	result := ValidationResult{Valid: true}
	check := func(path, code string, load func(string) error) {
		result.Checked++
		slog.Debug("validating", "file", path)
		if err := load(path); err != nil {
			result.Errors = append(result.Errors, ValidationIssue{File: path, Code: code, Message: err.Error()})
		}
	}
	if opts.Config != "" {
		check(opts.Config, ErrCodeConfigInvalid, func(path string) error {
			_, err := config.Load(path)
			return err
		})
	}
	for _, path := range scenarios {
		check(path, ErrCodeScenarioInvalid, func(path string) error {
			_, err := harness.LoadScenario(path)
			return err
		})
	}
	result.Valid = len(result.Errors) == 0

	out := opts.output(cmd)
	if result.Valid {
		return out.Emit("", result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ %d file(s) valid\n", result.Checked)
		})
	}

	first := result.Errors[0]
	err := out.Fail("", CLIError{Code: first.Code, Message: first.Message}, result, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, issue := range result.Errors {
			fmt.Fprintln(w, issue.File)
			fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
		}
	})
	if err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
