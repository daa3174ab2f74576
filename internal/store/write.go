package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/rewind/internal/undo"
)

// Session identifies one editing session's journal.
type Session struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Settings map[string]any `json:"settings"`
}

// NewSessionID returns a time-ordered session identifier.
func NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CreateSession inserts a session row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	settings, err := marshalSettings(sess.Settings)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, settings)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Label, settings)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

// AppendEntry writes one journal row for the session.
// Duplicate (session, seq) pairs are silently ignored.
//
// Note: the session must exist (foreign key constraint).
func (s *Store) AppendEntry(ctx context.Context, sessionID string, entry undo.JournalEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal
		(session_id, seq, tick, op, change_id, description, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		sessionID,
		entry.Seq,
		entry.Tick,
		string(entry.Op),
		entry.ChangeID,
		entry.Description,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("append journal entry %d: %w", entry.Seq, err)
	}
	return nil
}

// Journal appends to one session. It implements undo.Journal.
type Journal struct {
	store   *Store
	session string
}

// Journal returns an undo.Journal bound to sessionID.
func (s *Store) Journal(sessionID string) *Journal {
	return &Journal{store: s, session: sessionID}
}

// Append implements undo.Journal.
func (j *Journal) Append(ctx context.Context, entry undo.JournalEntry) error {
	return j.store.AppendEntry(ctx, j.session, entry)
}

// Session returns the bound session ID.
func (j *Journal) Session() string {
	return j.session
}

var _ undo.Journal = (*Journal)(nil)
