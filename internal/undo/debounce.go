package undo

import (
	"slices"

	"github.com/roach88/rewind/internal/ident"
)

// DefaultDebounceTicks is the number of ticks an entity stays debounced after
// the engine writes to it.
const DefaultDebounceTicks = 4

// MinDebounceTicks is the shortest usable window. The ledger decrements at
// the start of every tick, so a mark must outlive the decrement of the tick
// after the write for pipelines to adopt the written value.
const MinDebounceTicks = 2

// Ledger marks entities the engine itself just wrote to. While an entity is
// marked, pipelines must not originate change records from its values; they
// adopt the live values as their new baseline instead.
type Ledger struct {
	window  int
	entries map[ident.ID]int
}

// NewLedger creates a ledger whose marks last window ticks.
// A window below MinDebounceTicks is raised to it.
func NewLedger(window int) *Ledger {
	if window < MinDebounceTicks {
		window = MinDebounceTicks
	}
	return &Ledger{
		window:  window,
		entries: make(map[ident.ID]int),
	}
}

// Mark creates the entry for id, or resets its countdown. Idempotent.
func (l *Ledger) Mark(id ident.ID) {
	l.entries[id] = l.window
}

// Marked reports whether id is currently debounced.
func (l *Ledger) Marked(id ident.ID) bool {
	_, ok := l.entries[id]
	return ok
}

// Tick decrements every countdown and drops entries that reach zero.
// Runs once per tick, before any pipeline reads the ledger.
func (l *Ledger) Tick() {
	for id, n := range l.entries {
		if n <= 1 {
			delete(l.entries, id)
			continue
		}
		l.entries[id] = n - 1
	}
}

// IDs returns the marked identities in identity order.
func (l *Ledger) IDs() []ident.ID {
	ids := make([]ident.ID, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, ident.Compare)
	return ids
}

// Len returns the number of marked entities.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Window returns the configured countdown length.
func (l *Ledger) Window() int {
	return l.window
}
