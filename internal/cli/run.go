package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/harness"
	"github.com/roach88/rewind/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
}

// RunResult is the outcome of one recorded scenario run.
type RunResult struct {
	Scenario string        `json:"scenario"`
	Session  string        `json:"session"`
	Pass     bool          `json:"pass"`
	Errors   []string      `json:"errors,omitempty"`
	Summary  store.Summary `json:"summary"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and keep its journal",
		Long: `Run a scenario and append its history journal to a SQLite database.

The database is created if it doesn't exist. Each run gets a new session
unless --session is given. Inspect the result with "rewind journal".

Example:
  rewind run --db ./rewind.db scenarios/drag.yaml
  rewind run --config rewind.cue --session drag-1 scenarios/drag.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: journal_path from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journal session ID (default: new time-ordered ID)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	opts.configureLogging(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.JournalPath
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set journal_path")
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	slog.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	session := opts.Session
	if session == "" {
		session = store.NewSessionID()
	}

	result, err := harness.RunWithOptions(cmd.Context(), scenario, harness.Options{
		Store:     st,
		SessionID: session,
		Engine:    cfg.EngineOptions(),
		Logger:    slog.Default(),
	})
	if err != nil {
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	run := RunResult{
		Scenario: scenario.Name,
		Session:  session,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Summary:  result.Summary,
	}
	text := func(w io.Writer) {
		mark := "✓"
		if !run.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (session %s)\n", mark, run.Scenario, run.Session)
		for _, e := range run.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		writeSummaryText(w, run.Summary)
	}
	out := opts.output(cmd)
	if run.Pass {
		return out.Emit(session, run, text)
	}

	if err := out.Fail(session, CLIError{Code: ErrCodeTestFailed, Message: "assertions failed"}, run, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
}
