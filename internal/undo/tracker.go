package undo

import (
	"log/slog"
	"reflect"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/reflectx"
)

// pipeline is the type-erased view of a Tracker the engine drives each tick.
type pipeline interface {
	Kind() reflect.Type
	run(w World, ledger *Ledger) []Change
	rewrite(w World, remap *Remap, ledger *Ledger) int
}

// Filter decides whether an entity's value of a tracked kind is eligible for
// tracking. Ineligible entities are invisible to the tracker.
type Filter func(w World, id ident.ID) bool

// TrackOption configures a Tracker.
type TrackOption func(*trackConfig)

type trackConfig struct {
	filter Filter
}

// WithFilter restricts tracking to entities accepted by f.
func WithFilter(f Filter) TrackOption {
	return func(c *trackConfig) {
		c.filter = f
	}
}

// Tracker observes one value kind. Mutations are committed only once a value
// has stayed unchanged for a full tick, so a continuous interaction (a drag,
// a slider) produces one ValueChanged from its start value to its end value.
type Tracker[T any] struct {
	kind   reflect.Type
	filter Filter
	cache  *SnapshotCache[T]

	// lastSeen is the value observed on the previous tick; pending marks
	// entities whose value moved since it was last committed.
	lastSeen map[ident.ID]T
	pending  map[ident.ID]bool
}

// Track registers a pipeline for T with the engine and returns it. Values
// already present in the world become the baseline without producing records.
// Tracking the same kind twice returns the existing tracker.
func Track[T any](e *Engine, opts ...TrackOption) *Tracker[T] {
	kind := reflect.TypeFor[T]()
	if existing, ok := e.tracked[kind]; ok {
		slog.Warn("kind already tracked", "kind", reflectx.KindName(kind))
		return existing.(*Tracker[T])
	}

	cfg := trackConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &Tracker[T]{
		kind:     kind,
		filter:   cfg.filter,
		cache:    NewSnapshotCache[T](),
		lastSeen: make(map[ident.ID]T),
		pending:  make(map[ident.ID]bool),
	}
	for _, id := range e.world.Holding(kind) {
		if live, ok := t.live(e.world, id); ok && t.eligible(e.world, id) {
			t.commit(id, live)
		}
	}

	e.tracked[kind] = t
	e.pipelines = append(e.pipelines, t)
	slog.Debug("kind tracked", "kind", reflectx.KindName(kind), "baseline", t.cache.Len())
	return t
}

// Kind returns the tracked kind.
func (t *Tracker[T]) Kind() reflect.Type {
	return t.kind
}

// Cache exposes the committed snapshots.
func (t *Tracker[T]) Cache() *SnapshotCache[T] {
	return t.cache
}

// Pending reports whether id has an uncommitted mutation in flight.
func (t *Tracker[T]) Pending(id ident.ID) bool {
	return t.pending[id]
}

func (t *Tracker[T]) run(w World, ledger *Ledger) []Change {
	t.refresh(w, ledger)

	var changes []Change
	changes = append(changes, t.detectAdded(w, ledger)...)
	changes = append(changes, t.detectRemoved(w, ledger)...)
	changes = append(changes, t.detectMutated(w, ledger)...)
	return changes
}

// refresh adopts the live values of debounced entities as the new baseline.
func (t *Tracker[T]) refresh(w World, ledger *Ledger) {
	for _, id := range ledger.IDs() {
		live, ok := t.live(w, id)
		if !ok || !t.eligible(w, id) {
			t.forget(id)
			continue
		}
		t.commit(id, live)
	}
}

func (t *Tracker[T]) detectAdded(w World, ledger *Ledger) []Change {
	var changes []Change
	for _, id := range w.Holding(t.kind) {
		if ledger.Marked(id) || t.cache.Has(id) || !t.eligible(w, id) {
			continue
		}
		live, ok := t.live(w, id)
		if !ok {
			continue
		}
		t.commit(id, live)
		changes = append(changes, ValueAdded{ID: id, Kind: t.kind, New: reflectx.CloneAs(live)})
	}
	return changes
}

func (t *Tracker[T]) detectRemoved(w World, ledger *Ledger) []Change {
	var changes []Change
	for _, id := range t.cache.IDs() {
		if ledger.Marked(id) {
			continue
		}
		if _, ok := t.live(w, id); ok {
			if !t.eligible(w, id) {
				t.forget(id)
			}
			continue
		}
		old, _ := t.cache.Get(id)
		t.forget(id)
		changes = append(changes, ValueRemoved{ID: id, Kind: t.kind, Old: old})
	}
	return changes
}

func (t *Tracker[T]) detectMutated(w World, ledger *Ledger) []Change {
	var changes []Change
	for _, id := range t.cache.IDs() {
		if ledger.Marked(id) {
			continue
		}
		live, ok := t.live(w, id)
		if !ok {
			continue
		}

		if seen, ok := t.lastSeen[id]; !ok || !reflectx.Equal(seen, live) {
			t.lastSeen[id] = reflectx.CloneAs(live)
			t.pending[id] = true
			continue
		}
		if !t.pending[id] {
			continue
		}

		// Settled: the value held still for a full tick.
		delete(t.pending, id)
		old, _ := t.cache.Get(id)
		if reflectx.Equal(old, live) {
			continue
		}
		t.cache.Put(id, live)
		changes = append(changes, ValueChanged{ID: id, Kind: t.kind, Old: old, New: reflectx.CloneAs(live)})
	}
	return changes
}

// rewrite resolves stale identities inside every live value of the kind.
// Entities whose values changed are debounced so the rewrite is not recorded.
func (t *Tracker[T]) rewrite(w World, remap *Remap, ledger *Ledger) int {
	n := 0
	for _, id := range w.Holding(t.kind) {
		v, ok := w.Get(id, t.kind)
		if !ok {
			continue
		}
		p, ok := v.(*T)
		if !ok || p == nil {
			continue
		}
		if resolveRefs(reflect.ValueOf(p).Elem(), remap) {
			ledger.Mark(id)
			n++
		}
	}
	return n
}

func (t *Tracker[T]) live(w World, id ident.ID) (T, bool) {
	var zero T
	v, ok := w.Get(id, t.kind)
	if !ok {
		return zero, false
	}
	p, ok := v.(*T)
	if !ok || p == nil {
		return zero, false
	}
	return *p, true
}

func (t *Tracker[T]) eligible(w World, id ident.ID) bool {
	return t.filter == nil || t.filter(w, id)
}

func (t *Tracker[T]) commit(id ident.ID, live T) {
	t.cache.Put(id, live)
	t.lastSeen[id] = reflectx.CloneAs(live)
	delete(t.pending, id)
}

func (t *Tracker[T]) forget(id ident.ID) {
	t.cache.Delete(id)
	delete(t.lastSeen, id)
	delete(t.pending, id)
}
