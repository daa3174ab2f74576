package undo

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/reflectx"
)

// Engine drives the history subsystem one tick at a time.
//
// Thread-safety model:
//   - Enqueue(), Undo(), Redo(), Record(): safe from any goroutine
//   - Tick(), Run(), Spawn(), Despawn(), Track(): the tick goroutine only
//
// INVARIANTS:
//   - pipelines run in registration order, which never changes
//   - everything observed in one tick becomes at most one history entry
//   - every world write made by a revert or apply debounces its entity
type Engine struct {
	world     World
	chain     *Chain
	ledger    *Ledger
	queue     *eventQueue
	ticks     *Clock
	seq       *Clock
	pipelines []pipeline
	tracked   map[reflect.Type]pipeline

	capacity      int
	debounceTicks int
	journal       Journal
	metrics       *Metrics
	frame         FrameFunc
}

// FrameFunc runs at the start of every Run iteration, before the tick, on
// the tick goroutine. Hosts put their tool systems here.
type FrameFunc func(ctx context.Context, w World)

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithCapacity sets the per-stack history limit.
//
// Default: 200 records (DefaultCapacity). Zero or less means unbounded.
func WithCapacity(n int) EngineOption {
	return func(e *Engine) {
		e.capacity = n
	}
}

// WithDebounceTicks sets how long the engine's own writes are ignored.
//
// Default: 4 ticks (DefaultDebounceTicks). Values below MinDebounceTicks
// are raised to it.
func WithDebounceTicks(n int) EngineOption {
	return func(e *Engine) {
		e.debounceTicks = n
	}
}

// WithJournal appends every record, undo, redo and eviction to j.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics reports history activity to m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithFrame sets the per-iteration host callback used by Run.
func WithFrame(fn FrameFunc) EngineOption {
	return func(e *Engine) {
		e.frame = fn
	}
}

// New creates an Engine over w. Kinds are registered afterwards with Track.
func New(w World, opts ...EngineOption) *Engine {
	e := &Engine{
		world:         w,
		queue:         newEventQueue(),
		ticks:         NewClock(),
		seq:           NewClock(),
		tracked:       make(map[reflect.Type]pipeline),
		capacity:      DefaultCapacity,
		debounceTicks: DefaultDebounceTicks,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.chain = NewChain(e.capacity)
	e.ledger = NewLedger(e.debounceTicks)
	return e
}

// TickReport summarizes one tick.
type TickReport struct {
	Tick      int64
	Recorded  Change
	Steps     []Step
	Evicted   int
	Rewritten int
}

// Enqueue submits an inbound event for the next tick.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Record submits an explicit change record for the next tick.
func (e *Engine) Record(ch Change) bool {
	return e.Enqueue(Event{Type: EventNewChange, Change: ch})
}

// Undo requests one undo on the next tick.
func (e *Engine) Undo() bool {
	return e.Enqueue(Event{Type: EventUndo})
}

// Redo requests one redo on the next tick.
func (e *Engine) Redo() bool {
	return e.Enqueue(Event{Type: EventRedo})
}

// Spawn creates an entity and records its creation.
func (e *Engine) Spawn() ident.ID {
	id := e.world.Spawn()
	e.Record(EntityCreated{ID: id})
	return id
}

// Despawn records the destruction of id and removes it from the world.
// Its values are recorded as removals by the pipelines on the next tick.
func (e *Engine) Despawn(id ident.ID) bool {
	if !e.world.Exists(id) {
		return false
	}
	e.Record(EntityDestroyed{ID: id})
	return e.world.Despawn(id)
}

// Resolve returns the identity currently denoting id.
func (e *Engine) Resolve(id ident.ID) ident.ID {
	return e.chain.Remap().Resolve(id)
}

// World returns the world the engine observes.
func (e *Engine) World() World {
	return e.world
}

// Chain returns the history chain.
func (e *Engine) Chain() *Chain {
	return e.chain
}

// Ledger returns the debounce ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Tracked returns the tracked kinds in registration order.
func (e *Engine) Tracked() []reflect.Type {
	kinds := make([]reflect.Type, len(e.pipelines))
	for i, p := range e.pipelines {
		kinds[i] = p.Kind()
	}
	return kinds
}

// History describes the undo and redo stacks, oldest first.
type History struct {
	Undo []string `json:"undo"`
	Redo []string `json:"redo"`
}

// History returns the descriptions of every record on both stacks.
func (e *Engine) History() History {
	return History{
		Undo: describeAll(e.chain.UndoStack()),
		Redo: describeAll(e.chain.RedoStack()),
	}
}

func describeAll(changes []Change) []string {
	out := make([]string, len(changes))
	for i, ch := range changes {
		out[i] = ch.Describe()
	}
	return out
}

// CurrentTick returns the number of ticks run so far.
func (e *Engine) CurrentTick() int64 {
	return e.ticks.Current()
}

// Tick runs one full frame of the history subsystem.
//
// ERROR HANDLING: revert/apply failures are logged with the record's
// description and the tick carries on. Journal failures are logged too.
func (e *Engine) Tick(ctx context.Context) TickReport {
	report := TickReport{Tick: e.ticks.Next()}

	e.ledger.Tick()

	var changes []Change
	var requests []EventType
	for _, ev := range e.queue.Drain() {
		switch ev.Type {
		case EventNewChange:
			if ev.Change == nil {
				slog.Warn("record event missing change", "tick", report.Tick)
				continue
			}
			changes = append(changes, ev.Change)
		case EventUndo, EventRedo:
			requests = append(requests, ev.Type)
		default:
			slog.Warn("unknown event type", "type", int(ev.Type), "tick", report.Tick)
		}
	}

	for _, p := range e.pipelines {
		changes = append(changes, p.run(e.world, e.ledger)...)
	}

	if entry, evicted := e.chain.Record(changes); entry != nil {
		report.Recorded = entry
		report.Evicted += len(evicted)
		e.metrics.recorded(entry)
		e.appendJournal(ctx, report.Tick, OpRecord, entry, nil)
		e.evict(ctx, report.Tick, evicted)
		slog.Debug("history recorded",
			"tick", report.Tick,
			"records", len(changes),
			"depth", e.chain.Len())
	}

	dw := &debouncedWorld{World: e.world, ledger: e.ledger}
	remapped := false
	noticed := make(map[reflect.Type]bool)
	for _, req := range requests {
		step, ok := e.step(dw, req)
		if !ok {
			slog.Debug("nothing to "+req.String(), "tick", report.Tick)
			continue
		}
		report.Steps = append(report.Steps, step)
		if step.Err != nil {
			slog.Error(req.String()+" failed",
				"tick", report.Tick,
				"change", step.Change.Describe(),
				"error", step.Err)
		}
		e.metrics.stepped(req, step.Err)
		e.appendJournal(ctx, report.Tick, journalOp(req), step.Change, step.Err)

		if step.Outcome.Remapped() {
			remapped = true
		}
		for _, n := range step.Outcome.Notices {
			noticed[n.Kind] = true
		}
	}

	// Creates and destroys from the steps above are all materialized now.
	if remapped || len(noticed) > 0 {
		for _, p := range e.pipelines {
			if !remapped && !noticed[p.Kind()] {
				continue
			}
			n := p.rewrite(e.world, e.chain.Remap(), e.ledger)
			if n > 0 {
				slog.Debug("references rewritten",
					"tick", report.Tick,
					"kind", reflectx.KindName(p.Kind()),
					"values", n)
			}
			report.Rewritten += n
		}
		e.metrics.rewrote(report.Rewritten)
	}

	e.metrics.depth(e.chain)
	return report
}

// Run calls Tick every interval until ctx is cancelled or Stop is called.
// The frame callback, if set, runs before each tick.
//
// CRITICAL: Must be called from exactly ONE goroutine, the same one that
// mutates the world.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	slog.Info("history engine starting",
		"interval", interval,
		"capacity", e.capacity,
		"debounce_ticks", e.debounceTicks,
		"kinds", len(e.pipelines))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// Fires on new events too; those wait for the next tick.
			if e.queue.Closed() {
				slog.Info("history engine stopping: queue closed")
				return nil
			}

		case <-ticker.C:
			if e.frame != nil {
				e.frame(ctx, e.world)
			}
			e.Tick(ctx)
		}
	}
}

// Stop closes the inbound queue, which causes Run to return.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) step(w World, req EventType) (Step, bool) {
	if req == EventUndo {
		return e.chain.Undo(w)
	}
	return e.chain.Redo(w)
}

func (e *Engine) evict(ctx context.Context, tick int64, evicted []Change) {
	if len(evicted) == 0 {
		return
	}
	e.metrics.evicted(len(evicted))
	for _, ch := range evicted {
		e.appendJournal(ctx, tick, OpEvict, ch, nil)
	}
}

func (e *Engine) appendJournal(ctx context.Context, tick int64, op JournalOp, ch Change, stepErr error) {
	if e.journal == nil {
		return
	}
	entry := JournalEntry{
		Seq:         e.seq.Next(),
		Tick:        tick,
		Op:          op,
		ChangeID:    ChangeID(ch),
		Description: ch.Describe(),
	}
	if stepErr != nil {
		entry.Error = stepErr.Error()
	}
	if err := e.journal.Append(ctx, entry); err != nil {
		slog.Warn("journal append failed",
			"seq", entry.Seq,
			"op", string(op),
			"error", err)
	}
}

func journalOp(req EventType) JournalOp {
	if req == EventUndo {
		return OpUndo
	}
	return OpRedo
}
