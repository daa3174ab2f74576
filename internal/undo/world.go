package undo

import (
	"reflect"

	"github.com/roach88/rewind/internal/ident"
)

// World is the entity store capability the subsystem consumes.
// *world.World satisfies it.
type World interface {
	Spawn() ident.ID
	Despawn(id ident.ID) bool
	Exists(id ident.ID) bool
	Insert(id ident.ID, value any) error
	Remove(id ident.ID, kind reflect.Type) bool
	// Get returns a pointer to the live value of kind, type-erased.
	Get(id ident.ID, kind reflect.Type) (any, bool)
	// Holding returns the entities holding kind, in a stable order.
	Holding(kind reflect.Type) []ident.ID
}

// debouncedWorld marks every identity it writes to in the ledger.
// Records only ever see the world through it.
type debouncedWorld struct {
	World
	ledger *Ledger
}

func (w *debouncedWorld) Spawn() ident.ID {
	id := w.World.Spawn()
	w.ledger.Mark(id)
	return id
}

func (w *debouncedWorld) Despawn(id ident.ID) bool {
	w.ledger.Mark(id)
	return w.World.Despawn(id)
}

func (w *debouncedWorld) Insert(id ident.ID, value any) error {
	w.ledger.Mark(id)
	return w.World.Insert(id, value)
}

func (w *debouncedWorld) Remove(id ident.ID, kind reflect.Type) bool {
	w.ledger.Mark(id)
	return w.World.Remove(id, kind)
}
