package world

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ident"
)

type health struct {
	HP int
}

type label struct {
	Text string
}

func newTestWorld() *World {
	return New(WithGenerator(ident.NewSequentialGenerator()))
}

func TestWorld_SpawnDespawn(t *testing.T) {
	w := newTestWorld()

	id := w.Spawn()
	assert.Equal(t, ident.Seq(1), id)
	assert.True(t, w.Exists(id))
	assert.Equal(t, 1, w.Len())

	assert.True(t, w.Despawn(id))
	assert.False(t, w.Exists(id))
	assert.False(t, w.Despawn(id), "second despawn reports missing")
}

func TestWorld_RespawnYieldsNewIdentity(t *testing.T) {
	w := newTestWorld()

	first := w.Spawn()
	w.Despawn(first)
	second := w.Spawn()

	assert.NotEqual(t, first, second)
}

func TestWorld_InsertGetMutate(t *testing.T) {
	w := newTestWorld()
	id := w.Spawn()

	require.NoError(t, Insert(w, id, health{HP: 10}))

	hp, ok := Get[health](w, id)
	require.True(t, ok)
	assert.Equal(t, 10, hp.HP)

	hp.HP = 7
	again, _ := Get[health](w, id)
	assert.Equal(t, 7, again.HP, "writes through the pointer reach the world")

	require.NoError(t, Insert(w, id, health{HP: 1}))
	again, _ = Get[health](w, id)
	assert.Equal(t, 1, again.HP, "insert replaces the value")
}

func TestWorld_InsertErrors(t *testing.T) {
	w := newTestWorld()

	err := Insert(w, ident.Seq(99), health{})
	require.ErrorIs(t, err, ErrEntityNotFound)

	id := w.Spawn()
	require.Error(t, w.Insert(id, nil))
}

func TestWorld_RemoveAndHas(t *testing.T) {
	w := newTestWorld()
	id := w.Spawn()
	require.NoError(t, Insert(w, id, health{HP: 1}))

	assert.True(t, Has[health](w, id))
	assert.True(t, Remove[health](w, id))
	assert.False(t, Has[health](w, id))
	assert.False(t, Remove[health](w, id))
	assert.False(t, w.Remove(ident.Seq(50), reflect.TypeFor[health]()))
}

func TestWorld_HoldingIsOrdered(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn()
	b := w.Spawn()
	c := w.Spawn()

	require.NoError(t, Insert(w, c, health{}))
	require.NoError(t, Insert(w, a, health{}))
	require.NoError(t, Insert(w, b, label{}))

	assert.Equal(t, []ident.ID{a, c}, w.Holding(reflect.TypeFor[health]()))
	assert.Equal(t, []ident.ID{a, b, c}, w.Entities())
}

func TestWorld_Kinds(t *testing.T) {
	w := newTestWorld()
	id := w.Spawn()
	require.NoError(t, Insert(w, id, label{}))
	require.NoError(t, Insert(w, id, health{}))

	kinds := w.Kinds(id)
	require.Len(t, kinds, 2)
	assert.Equal(t, reflect.TypeFor[health](), kinds[0])
	assert.Equal(t, reflect.TypeFor[label](), kinds[1])
}
