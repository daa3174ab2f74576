package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/rewind/internal/undo"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateSession(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.CreateSession(context.Background(), Session{ID: id}); err != nil {
		t.Fatalf("CreateSession(%q) failed: %v", id, err)
	}
}

// createTestEntry creates a journal entry with minimal required fields.
func createTestEntry(seq, tick int64, op undo.JournalOp, changeID string) undo.JournalEntry {
	return undo.JournalEntry{
		Seq:         seq,
		Tick:        tick,
		Op:          op,
		ChangeID:    changeID,
		Description: "test " + string(op),
	}
}
