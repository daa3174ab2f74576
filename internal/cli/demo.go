package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/undo"
	"github.com/roach88/rewind/internal/world"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Database string
	Frames   int
}

// DemoResult is what the demo prints once the loop stops.
type DemoResult struct {
	Session string             `json:"session,omitempty"`
	Ticks   int64              `json:"ticks"`
	History undo.History       `json:"history"`
	Metrics map[string]float64 `json:"metrics"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the live engine loop with a scripted editor",
		Long: `Run the history engine on its real ticker with a scripted editor
driving it frame by frame: create a box and an anchor linked to it, drag
the box, delete it, then undo the delete, undo the drag and redo it.

The tick interval, capacity and debounce window come from --config.
With --db (or journal_path) the session journal is kept.

Example:
  rewind demo
  rewind demo --config rewind.cue --db ./rewind.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: journal_path from config)")
	cmd.Flags().IntVar(&opts.Frames, "frames", 80, "frames to run before stopping")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	opts.configureLogging(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Frames < demoLastScriptedFrame {
		return NewExitError(ExitCommandError, fmt.Sprintf("--frames must be at least %d", demoLastScriptedFrame))
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	engineOpts := append(cfg.EngineOptions(), undo.WithMetrics(undo.NewMetrics(reg)))

	var session string
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.JournalPath
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		session = store.NewSessionID()
		if err := st.CreateSession(ctx, store.Session{ID: session, Label: "demo", Settings: cfg.Settings()}); err != nil {
			return WrapExitError(ExitCommandError, "failed to create session", err)
		}
		engineOpts = append(engineOpts, undo.WithJournal(st.Journal(session)))
	}

	w := world.New()
	editor := &demoEditor{world: w, frames: opts.Frames, stop: cancel}
	engineOpts = append(engineOpts, undo.WithFrame(editor.frame))
	eng := undo.New(w, engineOpts...)
	editor.engine = eng
	undo.Track[testutil.Transform](eng)
	undo.Track[testutil.Link](eng)

	slog.Info("demo starting", "frames", opts.Frames, "tick_interval", cfg.TickInterval, "session", session)
	if err := eng.Run(ctx, cfg.TickInterval); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	result := DemoResult{
		Session: session,
		Ticks:   eng.CurrentTick(),
		History: eng.History(),
		Metrics: gatherMetrics(reg),
	}
	return opts.output(cmd).Emit(session, result, func(w io.Writer) {
		writeDemoText(w, result)
	})
}

// Frames at which the scripted editor acts.
const (
	demoDragStart         = 10
	demoDragEnd           = 19
	demoDeleteFrame       = 30
	demoUndoDeleteFrame   = 40
	demoUndoDragFrame     = 50
	demoRedoDragFrame     = 60
	demoLastScriptedFrame = demoRedoDragFrame + 1
)

// demoEditor plays the part of the editor's tools. It touches the world
// directly, the way a tool would, and only talks to the engine for
// create/destroy and undo/redo requests.
type demoEditor struct {
	world  *world.World
	engine *undo.Engine
	frames int
	stop   context.CancelFunc

	n      int
	box    ident.ID
	anchor ident.ID
}

// insert writes value to id, logging failures so the script keeps going.
func (d *demoEditor) insert(id ident.ID, value any) bool {
	if err := d.world.Insert(id, value); err != nil {
		slog.Error("editor: insert failed", "id", id.Short(), "kind", fmt.Sprintf("%T", value), "error", err)
		return false
	}
	return true
}

func (d *demoEditor) frame(ctx context.Context, _ undo.World) {
	d.n++
	switch {
	case d.n == 1:
		d.box = d.engine.Spawn()
		d.anchor = d.engine.Spawn()
		d.insert(d.box, testutil.Transform{})
		d.insert(d.anchor, testutil.Link{Target: d.box})
		slog.Info("editor: created box and anchor", "box", d.box.Short(), "anchor", d.anchor.Short())

	case d.n >= demoDragStart && d.n <= demoDragEnd:
		box := d.engine.Resolve(d.box)
		if t, ok := world.Get[testutil.Transform](d.world, box); ok {
			t.Position.X += 1
			t.Position.Y += 0.5
		}

	case d.n == demoDeleteFrame:
		d.engine.Despawn(d.engine.Resolve(d.box))
		slog.Info("editor: deleted box")

	case d.n == demoUndoDeleteFrame, d.n == demoUndoDragFrame:
		d.engine.Undo()
		slog.Info("editor: undo")

	case d.n == demoRedoDragFrame:
		d.engine.Redo()
		slog.Info("editor: redo")

	case d.n == d.frames:
		box := d.engine.Resolve(d.box)
		if link, ok := world.Get[testutil.Link](d.world, d.anchor); ok {
			slog.Info("editor: done",
				"box", box.Short(),
				"anchor_target", link.Target.Short(),
				"linked", link.Target == box)
		}
		d.stop()
	}
}

// gatherMetrics flattens the registry into "name{labels}" -> value.
func gatherMetrics(reg *prometheus.Registry) map[string]float64 {
	out := make(map[string]float64)
	families, err := reg.Gather()
	if err != nil {
		slog.Warn("gather metrics failed", "error", err)
		return out
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}

func writeDemoText(w io.Writer, r DemoResult) {
	fmt.Fprintf(w, "Ran %d ticks", r.Ticks)
	if r.Session != "" {
		fmt.Fprintf(w, " (session %s)", r.Session)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Undo ===")
	writeList(w, r.History.Undo)
	fmt.Fprintln(w, "=== Redo ===")
	writeList(w, r.History.Redo)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Metrics ===")
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s %g\n", k, r.Metrics[k])
	}
}

func writeList(w io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %s\n", items[i])
	}
}
