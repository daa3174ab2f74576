package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/undo"
	"github.com/roach88/rewind/internal/world"
)

func TestSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.CreateSession(ctx, Session{
		ID:       "s1",
		Label:    "scene edit",
		Settings: map[string]any{"history_capacity": 200, "debounce_ticks": 4},
	})
	require.NoError(t, err)

	// Idempotent.
	require.NoError(t, s.CreateSession(ctx, Session{ID: "s1", Label: "ignored"}))

	got, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "scene edit", got.Label)
	assert.Equal(t, json.Number("200"), got.Settings["history_capacity"])
	assert.Equal(t, json.Number("4"), got.Settings["debounce_ticks"])
}

func TestSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestListSessions_OrderedAndEmpty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	mustCreateSession(t, s, "b")
	mustCreateSession(t, s, "a")
	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "b", sessions[1].ID)
}

func TestNewSessionID_Unique(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestAppendEntry_ReadJournalInSeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreateSession(t, s, "s1")

	require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(2, 2, undo.OpUndo, "c1")))
	require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(1, 1, undo.OpRecord, "c1")))
	// Duplicate seq is ignored.
	require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(1, 9, undo.OpEvict, "zz")))

	entries, err := s.ReadJournal(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, createTestEntry(1, 1, undo.OpRecord, "c1"), entries[0])
	assert.Equal(t, createTestEntry(2, 2, undo.OpUndo, "c1"), entries[1])
}

func TestReadJournal_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.ReadJournal(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadTickRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreateSession(t, s, "s1")
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(i, i*10, undo.OpRecord, "c")))
	}

	entries, err := s.ReadTickRange(ctx, "s1", 20, 40)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(2), entries[0].Seq)
	assert.Equal(t, int64(4), entries[2].Seq)
}

func TestReadByChange_SpansSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreateSession(t, s, "s1")
	mustCreateSession(t, s, "s2")

	require.NoError(t, s.AppendEntry(ctx, "s2", createTestEntry(1, 1, undo.OpRecord, "shared")))
	require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(1, 1, undo.OpRecord, "shared")))
	require.NoError(t, s.AppendEntry(ctx, "s1", createTestEntry(2, 1, undo.OpRecord, "other")))

	entries, err := s.ReadByChange(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSummarize(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreateSession(t, s, "s1")

	failed := createTestEntry(3, 3, undo.OpUndo, "c2")
	failed.Error = "UNRESOLVABLE_IDENTITY: gone"
	for _, e := range []undo.JournalEntry{
		createTestEntry(1, 1, undo.OpRecord, "c1"),
		createTestEntry(2, 2, undo.OpRecord, "c2"),
		failed,
		createTestEntry(4, 7, undo.OpRedo, "c2"),
	} {
		require.NoError(t, s.AppendEntry(ctx, "s1", e))
	}

	sum, err := s.Summarize(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 2, Undos: 1, Redos: 1, Failures: 1, LastTick: 7}, sum)
}

func TestJournal_BacksEngine(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreateSession(t, s, "s1")

	w := testutil.NewWorld()
	e := undo.New(w, undo.WithJournal(s.Journal("s1")))
	undo.Track[testutil.Counter](e)

	id := e.Spawn()
	require.NoError(t, world.Insert(w, id, testutil.Counter{X: 3}))
	e.Tick(ctx)
	e.Undo()
	e.Tick(ctx)

	entries, err := s.ReadJournal(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, undo.OpRecord, entries[0].Op)
	assert.Equal(t, undo.OpUndo, entries[1].Op)
	assert.Equal(t, entries[0].ChangeID, entries[1].ChangeID)
	assert.Contains(t, entries[0].Description, "group of 2")
}
