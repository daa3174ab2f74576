package undo

import (
	"slices"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/reflectx"
)

// SnapshotCache holds the last committed value of one kind per entity.
// Stored values are deep copies and never alias live world data; Get hands
// out the stored copy, which callers must treat as read-only or take
// ownership of after Delete.
type SnapshotCache[T any] struct {
	values map[ident.ID]T
}

// NewSnapshotCache creates an empty cache.
func NewSnapshotCache[T any]() *SnapshotCache[T] {
	return &SnapshotCache[T]{values: make(map[ident.ID]T)}
}

// Get returns the committed value for id.
func (c *SnapshotCache[T]) Get(id ident.ID) (T, bool) {
	v, ok := c.values[id]
	return v, ok
}

// Has reports whether id has a committed value.
func (c *SnapshotCache[T]) Has(id ident.ID) bool {
	_, ok := c.values[id]
	return ok
}

// Put stores a deep copy of v.
func (c *SnapshotCache[T]) Put(id ident.ID, v T) {
	c.values[id] = reflectx.CloneAs(v)
}

// Delete drops the entry for id.
func (c *SnapshotCache[T]) Delete(id ident.ID) {
	delete(c.values, id)
}

// IDs returns the cached identities in identity order.
func (c *SnapshotCache[T]) IDs() []ident.ID {
	ids := make([]ident.ID, 0, len(c.values))
	for id := range c.values {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, ident.Compare)
	return ids
}

// Len returns the number of entries.
func (c *SnapshotCache[T]) Len() int {
	return len(c.values)
}
