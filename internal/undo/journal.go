package undo

import (
	"context"
	"sync"
)

// JournalOp is the kind of history event a journal entry describes.
type JournalOp string

const (
	OpRecord JournalOp = "record"
	OpUndo   JournalOp = "undo"
	OpRedo   JournalOp = "redo"
	OpEvict  JournalOp = "evict"
)

// JournalEntry is one append-only line of session history. ChangeID is the
// content address of the record, so an undo entry links back to the record
// entry it reverted.
type JournalEntry struct {
	Seq         int64     `json:"seq"`
	Tick        int64     `json:"tick"`
	Op          JournalOp `json:"op"`
	ChangeID    string    `json:"change_id"`
	Description string    `json:"description"`
	Error       string    `json:"error,omitempty"`
}

// Journal persists history events. Append failures are logged by the engine
// and never interrupt a tick.
type Journal interface {
	Append(ctx context.Context, entry JournalEntry) error
}

// MemoryJournal keeps entries in memory.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append implements Journal.
func (j *MemoryJournal) Append(_ context.Context, entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

// Entries returns a copy of the appended entries.
func (j *MemoryJournal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]JournalEntry(nil), j.entries...)
}
