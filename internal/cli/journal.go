package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/undo"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	FromTick int64
	ToTick   int64
	Change   string
}

// JournalResult holds one session's journal output.
type JournalResult struct {
	Session store.Session       `json:"session"`
	Entries []undo.JournalEntry `json:"entries"`
	Summary store.Summary       `json:"summary"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal [session]",
		Short: "Show recorded history sessions",
		Long: `Show the history journal kept in a SQLite database.

Without a session, lists every session. With a session, prints its
entries in order (optionally limited to a tick range) and a summary.
With --change, lists every entry across sessions for one record.

Examples:
  rewind journal --db ./rewind.db
  rewind journal --db ./rewind.db 0192f0c1-...
  rewind journal --db ./rewind.db 0192f0c1-... --from 10 --to 40
  rewind journal --db ./rewind.db --change 3f9a... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 1 {
				session = args[0]
			}
			return runJournal(opts, session, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.FromTick, "from", 0, "first tick to show")
	cmd.Flags().Int64Var(&opts.ToTick, "to", 0, "last tick to show (0 = no limit)")
	cmd.Flags().StringVar(&opts.Change, "change", "", "show entries for one change ID")

	return cmd
}

func runJournal(opts *JournalOptions, session string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	out := opts.output(cmd)
	switch {
	case opts.Change != "":
		entries, err := st.ReadByChange(ctx, opts.Change)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		return out.Emit("", entries, func(w io.Writer) {
			writeEntriesText(w, entries)
		})

	case session == "":
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return out.Emit("", sessions, func(w io.Writer) {
			writeSessionsText(w, sessions)
		})
	}

	result, err := readSessionJournal(ctx, st, session, opts.FromTick, opts.ToTick)
	if errors.Is(err, store.ErrSessionNotFound) {
		if ferr := out.Fail(session, CLIError{Code: ErrCodeSessionNotFound, Message: err.Error()}, nil, nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return out.Emit(session, result, func(w io.Writer) {
		fmt.Fprintf(w, "Session: %s (%s)\n\n", result.Session.ID, result.Session.Label)
		writeEntriesText(w, result.Entries)
		fmt.Fprintln(w)
		writeSummaryText(w, result.Summary)
	})
}

// writeSessionsText prints one aligned row per session.
func writeSessionsText(w io.Writer, sessions []store.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tLABEL")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Label)
	}
	_ = tw.Flush()
}

func readSessionJournal(ctx context.Context, st *store.Store, session string, from, to int64) (JournalResult, error) {
	sess, err := st.ReadSession(ctx, session)
	if err != nil {
		return JournalResult{}, err
	}

	var entries []undo.JournalEntry
	if from > 0 || to > 0 {
		if to <= 0 {
			to = 1<<63 - 1
		}
		entries, err = st.ReadTickRange(ctx, session, from, to)
	} else {
		entries, err = st.ReadJournal(ctx, session)
	}
	if err != nil {
		return JournalResult{}, err
	}

	summary, err := st.Summarize(ctx, session)
	if err != nil {
		return JournalResult{}, err
	}
	return JournalResult{Session: sess, Entries: entries, Summary: summary}, nil
}

func writeEntriesText(w io.Writer, entries []undo.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (no entries)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTICK\tOP\tCHANGE\tDESCRIPTION")
	for _, e := range entries {
		desc := e.Description
		if e.Error != "" {
			desc += "  [error: " + e.Error + "]"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", e.Seq, e.Tick, e.Op, truncateID(e.ChangeID), desc)
	}
	_ = tw.Flush()
}

func writeSummaryText(w io.Writer, s store.Summary) {
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "  Records:   %d\n", s.Records)
	fmt.Fprintf(w, "  Undos:     %d\n", s.Undos)
	fmt.Fprintf(w, "  Redos:     %d\n", s.Redos)
	fmt.Fprintf(w, "  Evictions: %d\n", s.Evictions)
	fmt.Fprintf(w, "  Failures:  %d\n", s.Failures)
	fmt.Fprintf(w, "  Last Tick: %d\n", s.LastTick)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
