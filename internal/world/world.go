// Package world is a small in-memory entity store: entities are bare
// identities, and each entity holds at most one value per kind, where a kind
// is the value's Go type.
//
// The store is the collaborator the undo subsystem mutates and observes. It is
// not safe for concurrent use; the host run-loop owns it.
package world

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/rewind/internal/ident"
)

// ErrEntityNotFound is returned when an operation targets an identity that
// does not name a live entity.
var ErrEntityNotFound = errors.New("entity not found")

// World holds the live entities and their values.
type World struct {
	gen      ident.Generator
	entities map[ident.ID]map[reflect.Type]reflect.Value
}

// Option configures a World.
type Option func(*World)

// WithGenerator sets the identity generator. Defaults to UUIDv7Generator.
func WithGenerator(gen ident.Generator) Option {
	return func(w *World) {
		w.gen = gen
	}
}

// New creates an empty world.
func New(opts ...Option) *World {
	w := &World{
		gen:      ident.UUIDv7Generator{},
		entities: make(map[ident.ID]map[reflect.Type]reflect.Value),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Spawn creates an empty entity and returns its fresh identity.
func (w *World) Spawn() ident.ID {
	id := w.gen.Generate()
	w.entities[id] = make(map[reflect.Type]reflect.Value)
	return id
}

// Despawn destroys the entity and every value it holds.
// Returns false if the entity did not exist.
func (w *World) Despawn(id ident.ID) bool {
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	return true
}

// Exists reports whether id names a live entity.
func (w *World) Exists(id ident.ID) bool {
	_, ok := w.entities[id]
	return ok
}

// Insert stores a copy of value on the entity, replacing any value of the same
// kind. The kind is the dynamic type of value.
func (w *World) Insert(id ident.ID, value any) error {
	if value == nil {
		return fmt.Errorf("insert on %s: nil value", id)
	}
	values, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("insert on %s: %w", id, ErrEntityNotFound)
	}

	rv := reflect.ValueOf(value)
	slot := reflect.New(rv.Type())
	slot.Elem().Set(rv)
	values[rv.Type()] = slot
	return nil
}

// Remove deletes the value of the given kind from the entity.
// Returns false if the entity or the value did not exist.
func (w *World) Remove(id ident.ID, kind reflect.Type) bool {
	values, ok := w.entities[id]
	if !ok {
		return false
	}
	if _, ok := values[kind]; !ok {
		return false
	}
	delete(values, kind)
	return true
}

// Get returns a pointer to the live value of the given kind, as a
// type-erased handle. Writes through the pointer mutate the world directly.
func (w *World) Get(id ident.ID, kind reflect.Type) (any, bool) {
	values, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	slot, ok := values[kind]
	if !ok {
		return nil, false
	}
	return slot.Interface(), true
}

// Has reports whether the entity holds a value of the given kind.
func (w *World) Has(id ident.ID, kind reflect.Type) bool {
	_, ok := w.Get(id, kind)
	return ok
}

// Holding returns every entity that holds a value of the given kind, in
// identity order.
func (w *World) Holding(kind reflect.Type) []ident.ID {
	var ids []ident.ID
	for id, values := range w.entities {
		if _, ok := values[kind]; ok {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, ident.Compare)
	return ids
}

// Entities returns every live identity in identity order.
func (w *World) Entities() []ident.ID {
	ids := make([]ident.ID, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, ident.Compare)
	return ids
}

// Kinds returns the kinds held by an entity, ordered by kind name.
func (w *World) Kinds(id ident.ID) []reflect.Type {
	values := w.entities[id]
	kinds := make([]reflect.Type, 0, len(values))
	for kind := range values {
		kinds = append(kinds, kind)
	}
	slices.SortFunc(kinds, func(a, b reflect.Type) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	return kinds
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return len(w.entities)
}

// Insert is the typed form of World.Insert.
func Insert[T any](w *World, id ident.ID, value T) error {
	return w.Insert(id, value)
}

// Get returns a pointer to the live T on the entity.
func Get[T any](w *World, id ident.ID) (*T, bool) {
	v, ok := w.Get(id, reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	p, ok := v.(*T)
	return p, ok
}

// Has reports whether the entity holds a T.
func Has[T any](w *World, id ident.ID) bool {
	return w.Has(id, reflect.TypeFor[T]())
}

// Remove deletes the T from the entity.
func Remove[T any](w *World, id ident.ID) bool {
	return w.Remove(id, reflect.TypeFor[T]())
}
