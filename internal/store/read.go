package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/undo"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession returns the session row for id.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var (
		sess     Session
		settings string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, settings FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Label, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}

	sess.Settings, err = unmarshalSettings(settings)
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by ID. Session IDs are
// time-ordered, so this is creation order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, settings FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var (
			sess     Session
			settings string
		)
		if err := rows.Scan(&sess.ID, &sess.Label, &settings); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.Settings, err = unmarshalSettings(settings); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadJournal returns a session's entries in seq order.
//
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadJournal(ctx context.Context, sessionID string) ([]undo.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, op, change_id, description, error
		FROM journal
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return scanEntries(rows)
}

// ReadTickRange returns a session's entries with from <= tick <= to, in seq
// order.
func (s *Store) ReadTickRange(ctx context.Context, sessionID string, from, to int64) ([]undo.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, op, change_id, description, error
		FROM journal
		WHERE session_id = ? AND tick BETWEEN ? AND ?
		ORDER BY seq ASC
	`, sessionID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query journal range: %w", err)
	}
	return scanEntries(rows)
}

// ReadByChange returns every entry, across sessions, that refers to
// changeID. Ordered by session then seq.
func (s *Store) ReadByChange(ctx context.Context, changeID string) ([]undo.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, op, change_id, description, error
		FROM journal
		WHERE change_id = ?
		ORDER BY session_id COLLATE BINARY ASC, seq ASC
	`, changeID)
	if err != nil {
		return nil, fmt.Errorf("query journal by change: %w", err)
	}
	return scanEntries(rows)
}

// Summary counts a session's journal rows.
type Summary struct {
	Records   int   `json:"records"`
	Undos     int   `json:"undos"`
	Redos     int   `json:"redos"`
	Evictions int   `json:"evictions"`
	Failures  int   `json:"failures"`
	LastTick  int64 `json:"last_tick"`
}

// Summarize aggregates a session's journal.
func (s *Store) Summarize(ctx context.Context, sessionID string) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op, COUNT(*), SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), MAX(tick)
		FROM journal
		WHERE session_id = ?
		GROUP BY op
		ORDER BY op ASC
	`, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize journal: %w", err)
	}
	defer rows.Close()

	var sum Summary
	for rows.Next() {
		var (
			op       string
			count    int
			failures int
			lastTick int64
		)
		if err := rows.Scan(&op, &count, &failures, &lastTick); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		switch undo.JournalOp(op) {
		case undo.OpRecord:
			sum.Records = count
		case undo.OpUndo:
			sum.Undos = count
		case undo.OpRedo:
			sum.Redos = count
		case undo.OpEvict:
			sum.Evictions = count
		}
		sum.Failures += failures
		sum.LastTick = max(sum.LastTick, lastTick)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return sum, nil
}

func scanEntries(rows *sql.Rows) ([]undo.JournalEntry, error) {
	defer rows.Close()

	entries := []undo.JournalEntry{}
	for rows.Next() {
		var (
			e  undo.JournalEntry
			op string
		)
		if err := rows.Scan(&e.Seq, &e.Tick, &op, &e.ChangeID, &e.Description, &e.Error); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Op = undo.JournalOp(op)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
