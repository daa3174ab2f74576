package undo

import (
	"log/slog"
)

// DefaultCapacity is the default maximum depth of each history stack.
const DefaultCapacity = 200

// Step is the result of one undo or redo.
type Step struct {
	Change  Change
	Outcome Outcome
	Err     error
}

// Chain holds the undo and redo stacks and the remap table every record
// resolves through.
//
// A record moves to the opposite stack even when its revert or apply fails,
// so the user can still step past it.
type Chain struct {
	capacity int
	undo     []Change
	redo     []Change
	remap    *Remap
}

// NewChain creates a chain whose stacks each hold at most capacity records.
// A capacity below 1 means unbounded.
func NewChain(capacity int) *Chain {
	return &Chain{
		capacity: capacity,
		remap:    NewRemap(),
	}
}

// Record pushes one history entry built from everything observed in a tick
// and clears the redo stack. A single change is stored as-is; several are
// grouped into a Composite. Returns the stored entry (nil when changes is
// empty) and any records evicted to respect capacity.
func (c *Chain) Record(changes []Change) (Change, []Change) {
	if len(changes) == 0 {
		return nil, nil
	}

	var entry Change
	if len(changes) == 1 {
		entry = changes[0]
	} else {
		entry = Composite{Changes: append([]Change(nil), changes...)}
	}

	c.redo = nil
	return entry, c.push(&c.undo, entry)
}

// Undo reverts the most recent record and moves it to the redo stack.
// Returns false when there is nothing to undo.
func (c *Chain) Undo(w World) (Step, bool) {
	ch, ok := pop(&c.undo)
	if !ok {
		return Step{}, false
	}
	out, err := ch.Revert(w, c.remap)
	c.remap.Merge(out.Pairs...)
	c.push(&c.redo, ch)
	return Step{Change: ch, Outcome: out, Err: err}, true
}

// Redo re-applies the most recently undone record and moves it back to the
// undo stack. Does not clear the redo stack. Returns false when there is
// nothing to redo.
func (c *Chain) Redo(w World) (Step, bool) {
	ch, ok := pop(&c.redo)
	if !ok {
		return Step{}, false
	}
	out, err := ch.Apply(w, c.remap)
	c.remap.Merge(out.Pairs...)
	c.push(&c.undo, ch)
	return Step{Change: ch, Outcome: out, Err: err}, true
}

// Len returns the undo stack depth.
func (c *Chain) Len() int {
	return len(c.undo)
}

// RedoLen returns the redo stack depth.
func (c *Chain) RedoLen() int {
	return len(c.redo)
}

// Capacity returns the per-stack limit (0 or less means unbounded).
func (c *Chain) Capacity() int {
	return c.capacity
}

// Remap returns the accumulated identity remap table.
func (c *Chain) Remap() *Remap {
	return c.remap
}

// UndoStack returns the undo records, oldest first.
func (c *Chain) UndoStack() []Change {
	return append([]Change(nil), c.undo...)
}

// RedoStack returns the redo records, oldest first.
func (c *Chain) RedoStack() []Change {
	return append([]Change(nil), c.redo...)
}

// Clear drops both stacks. The remap table is kept: live values may still
// hold identities that resolve through it.
func (c *Chain) Clear() {
	c.undo = nil
	c.redo = nil
}

func (c *Chain) push(stack *[]Change, ch Change) []Change {
	*stack = append(*stack, ch)
	if c.capacity < 1 || len(*stack) <= c.capacity {
		return nil
	}
	n := len(*stack) - c.capacity
	evicted := append([]Change(nil), (*stack)[:n]...)
	clear((*stack)[:n])
	*stack = (*stack)[n:]
	slog.Debug("history evicted", "count", n, "capacity", c.capacity)
	return evicted
}

func pop(stack *[]Change) (Change, bool) {
	n := len(*stack)
	if n == 0 {
		return nil, false
	}
	ch := (*stack)[n-1]
	(*stack)[n-1] = nil
	*stack = (*stack)[:n-1]
	return ch, true
}
