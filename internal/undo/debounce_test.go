package undo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rewind/internal/ident"
)

func TestLedger_MarkLastsWindowTicks(t *testing.T) {
	l := NewLedger(3)
	id := ident.Seq(1)

	l.Mark(id)
	assert.True(t, l.Marked(id))

	l.Tick() // 2
	assert.True(t, l.Marked(id))
	l.Tick() // 1
	assert.True(t, l.Marked(id))
	l.Tick() // 0, dropped
	assert.False(t, l.Marked(id))
	assert.Equal(t, 0, l.Len())
}

func TestLedger_MarkResetsCountdown(t *testing.T) {
	l := NewLedger(2)
	id := ident.Seq(1)

	l.Mark(id)
	l.Tick()
	l.Mark(id)
	l.Tick()
	assert.True(t, l.Marked(id), "re-marking must restart the countdown")
	l.Tick()
	assert.False(t, l.Marked(id))
}

func TestLedger_MarkIdempotent(t *testing.T) {
	l := NewLedger(DefaultDebounceTicks)
	l.Mark(ident.Seq(1))
	l.Mark(ident.Seq(1))
	assert.Equal(t, 1, l.Len())
}

func TestLedger_WindowFloor(t *testing.T) {
	for _, window := range []int{0, 1} {
		l := NewLedger(window)
		assert.Equal(t, MinDebounceTicks, l.Window())

		l.Mark(ident.Seq(1))
		l.Tick()
		assert.True(t, l.Marked(ident.Seq(1)), "window %d: mark must survive the next tick's decrement", window)
		l.Tick()
		assert.False(t, l.Marked(ident.Seq(1)))
	}
}

func TestLedger_IDsSorted(t *testing.T) {
	l := NewLedger(2)
	l.Mark(ident.Seq(3))
	l.Mark(ident.Seq(1))
	l.Mark(ident.Seq(2))

	assert.Equal(t, []ident.ID{ident.Seq(1), ident.Seq(2), ident.Seq(3)}, l.IDs())
}
