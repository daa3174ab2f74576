package undo

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/world"
)

var (
	counterKind = reflect.TypeFor[testutil.Counter]()
	linkKind    = reflect.TypeFor[testutil.Link]()
)

func TestEntityCreated_RevertThenApply(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	ch := EntityCreated{ID: id}
	remap := NewRemap()

	out, err := ch.Revert(w, remap)
	require.NoError(t, err)
	assert.False(t, out.Remapped())
	assert.False(t, w.Exists(id))

	// Reverting again finds nothing to destroy.
	_, err = ch.Revert(w, remap)
	require.NoError(t, err)

	out, err = ch.Apply(w, remap)
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)
	assert.Equal(t, id, out.Pairs[0].Original)
	assert.True(t, w.Exists(out.Pairs[0].Current))
	assert.NotEqual(t, id, out.Pairs[0].Current)
}

func TestEntityCreated_ApplyOnLiveEntityIsNoop(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()

	out, err := EntityCreated{ID: id}.Apply(w, NewRemap())
	require.NoError(t, err)
	assert.False(t, out.Remapped())
	assert.Len(t, w.Entities(), 1)
}

func TestEntityDestroyed_RevertRecreates(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	w.Despawn(id)

	out, err := EntityDestroyed{ID: id}.Revert(w, NewRemap())
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)
	fresh := out.Pairs[0].Current
	assert.True(t, w.Exists(fresh))

	remap := NewRemap()
	remap.Merge(out.Pairs...)
	_, err = EntityDestroyed{ID: id}.Apply(w, remap)
	require.NoError(t, err)
	assert.False(t, w.Exists(fresh))
}

func TestValueChanged_RevertAndApply(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	require.NoError(t, world.Insert(w, id, testutil.Counter{X: 2}))

	ch := ValueChanged{ID: id, Kind: counterKind, Old: testutil.Counter{X: 1}, New: testutil.Counter{X: 2}}

	out, err := ch.Revert(w, NewRemap())
	require.NoError(t, err)
	assert.Empty(t, out.Notices, "same identity and no stale refs")
	got, _ := world.Get[testutil.Counter](w, id)
	assert.Equal(t, 1, got.X)

	_, err = ch.Apply(w, NewRemap())
	require.NoError(t, err)
	got, _ = world.Get[testutil.Counter](w, id)
	assert.Equal(t, 2, got.X)
}

func TestValueChanged_ResolvesThroughRemap(t *testing.T) {
	w := testutil.NewWorld()
	stale := ident.Seq(100)
	live := w.Spawn()
	require.NoError(t, world.Insert(w, live, testutil.Counter{X: 2}))

	remap := NewRemap()
	remap.Merge(Pair{Original: stale, Current: live})

	out, err := ValueChanged{ID: stale, Kind: counterKind, Old: testutil.Counter{X: 1}}.Revert(w, remap)
	require.NoError(t, err)
	require.Len(t, out.Notices, 1)
	assert.Equal(t, IdentityRemapped{Kind: counterKind, ID: live}, out.Notices[0])

	got, _ := world.Get[testutil.Counter](w, live)
	assert.Equal(t, 1, got.X)
}

func TestValueChanged_MissingEntityIsUnresolvable(t *testing.T) {
	w := testutil.NewWorld()

	_, err := ValueChanged{ID: ident.Seq(9), Kind: counterKind, Old: testutil.Counter{}}.Revert(w, NewRemap())
	require.Error(t, err)
	assert.True(t, IsUnresolvable(err))
	assert.False(t, IsUnreconstructible(err))
	assert.Empty(t, w.Entities(), "no entity is created for a plain change")
}

func TestValueChanged_WrongTypeIsUnreconstructible(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()

	_, err := ValueChanged{ID: id, Kind: counterKind, Old: "not a counter"}.Revert(w, NewRemap())
	require.Error(t, err)
	assert.True(t, IsUnreconstructible(err))

	var ue *Error
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, id, ue.ID)
	assert.Equal(t, counterKind, ue.Kind)
	assert.Contains(t, ue.Error(), "UNRECONSTRUCTIBLE_VALUE")
}

func TestValueAdded_RevertRemovesApplyRestores(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	require.NoError(t, world.Insert(w, id, testutil.Counter{X: 5}))
	ch := ValueAdded{ID: id, Kind: counterKind, New: testutil.Counter{X: 5}}

	_, err := ch.Revert(w, NewRemap())
	require.NoError(t, err)
	assert.False(t, world.Has[testutil.Counter](w, id))

	_, err = ch.Apply(w, NewRemap())
	require.NoError(t, err)
	got, ok := world.Get[testutil.Counter](w, id)
	require.True(t, ok)
	assert.Equal(t, 5, got.X)
}

func TestValueAdded_RevertOnMissingEntityIsDone(t *testing.T) {
	w := testutil.NewWorld()
	out, err := ValueAdded{ID: ident.Seq(3), Kind: counterKind, New: testutil.Counter{}}.Revert(w, NewRemap())
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
}

func TestValueRemoved_RevertRecreatesEntity(t *testing.T) {
	w := testutil.NewWorld()
	gone := ident.Seq(42)

	out, err := ValueRemoved{ID: gone, Kind: counterKind, Old: testutil.Counter{X: 7}}.Revert(w, NewRemap())
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)
	fresh := out.Pairs[0].Current
	assert.Equal(t, gone, out.Pairs[0].Original)
	assert.Equal(t, []IdentityRemapped{{Kind: counterKind, ID: fresh}}, out.Notices)

	got, ok := world.Get[testutil.Counter](w, fresh)
	require.True(t, ok)
	assert.Equal(t, 7, got.X)
}

func TestValueRemoved_NoticeForStaleReference(t *testing.T) {
	w := testutil.NewWorld()
	holder := w.Spawn()
	remap := NewRemap()
	remap.Merge(Pair{Original: ident.Seq(50), Current: ident.Seq(51)})

	out, err := ValueRemoved{ID: holder, Kind: linkKind, Old: testutil.Link{Target: ident.Seq(50)}}.Revert(w, remap)
	require.NoError(t, err)
	assert.Empty(t, out.Pairs)
	assert.Equal(t, []IdentityRemapped{{Kind: linkKind, ID: holder}}, out.Notices)
}

func TestRecords_DoNotAliasWorld(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	g := testutil.Group{Members: []ident.ID{ident.Seq(1)}}
	ch := ValueAdded{ID: id, Kind: reflect.TypeFor[testutil.Group](), New: g}

	_, err := ch.Apply(w, NewRemap())
	require.NoError(t, err)

	live, _ := world.Get[testutil.Group](w, id)
	live.Members[0] = ident.Seq(99)

	assert.Equal(t, ident.Seq(1), ch.New.(testutil.Group).Members[0])
}

func TestComposite_RunsChildrenInStoredOrder(t *testing.T) {
	var log []string
	c := Composite{Changes: []Change{
		recordingChange{name: "a", log: &log},
		recordingChange{name: "b", log: &log},
		recordingChange{name: "c", log: &log},
	}}

	_, err := c.Revert(nil, NewRemap())
	require.NoError(t, err)
	_, err = c.Apply(nil, NewRemap())
	require.NoError(t, err)

	// Revert does not reverse the order.
	assert.Equal(t, []string{
		"revert a", "revert b", "revert c",
		"apply a", "apply b", "apply c",
	}, log)
}

func TestComposite_ChildFailureDoesNotStopLaterChildren(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	c := Composite{Changes: []Change{
		recordingChange{name: "a", log: &log, err: boom},
		recordingChange{name: "b", log: &log},
	}}

	_, err := c.Revert(nil, NewRemap())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"revert a", "revert b"}, log)
}

func TestComposite_DestroyGroupRevertsWithLocalRemap(t *testing.T) {
	w := testutil.NewWorld()
	id := w.Spawn()
	require.NoError(t, world.Insert(w, id, testutil.Counter{X: 3}))
	w.Despawn(id)

	remap := NewRemap()
	c := Composite{Changes: []Change{
		EntityDestroyed{ID: id},
		ValueRemoved{ID: id, Kind: counterKind, Old: testutil.Counter{X: 3}},
	}}

	out, err := c.Revert(w, remap)
	require.NoError(t, err)
	require.Len(t, out.Pairs, 1)
	assert.Equal(t, 0, remap.Len(), "the chain's table is only updated by the chain")

	fresh := out.Pairs[0].Current
	got, ok := world.Get[testutil.Counter](w, fresh)
	require.True(t, ok)
	assert.Equal(t, 3, got.X)
	assert.Len(t, w.Entities(), 1, "the value lands on the recreated entity")
}

func TestComposite_ErrorsAreJoined(t *testing.T) {
	w := testutil.NewWorld()
	c := Composite{Changes: []Change{
		ValueChanged{ID: ident.Seq(8), Kind: counterKind, Old: testutil.Counter{}},
		ValueChanged{ID: ident.Seq(9), Kind: counterKind, Old: 12},
	}}

	_, err := c.Revert(w, NewRemap())
	require.Error(t, err)
	assert.True(t, IsUnresolvable(err))
	assert.True(t, IsUnreconstructible(err))
}

func TestFlattenAndDescribe(t *testing.T) {
	inner := Composite{Changes: []Change{EntityCreated{ID: ident.Seq(1)}, EntityCreated{ID: ident.Seq(2)}}}
	outer := Composite{Changes: []Change{inner, EntityDestroyed{ID: ident.Seq(3)}}}

	assert.Len(t, Flatten(outer), 3)
	assert.Equal(t, "create entity 00000001", EntityCreated{ID: ident.Seq(1)}.Describe())
	assert.Equal(t,
		`change testutil.Counter on 00000001: {"x":1} -> {"x":2}`,
		ValueChanged{ID: ident.Seq(1), Kind: counterKind, Old: testutil.Counter{X: 1}, New: testutil.Counter{X: 2}}.Describe())
	assert.Contains(t, outer.Describe(), "group of 2")
}

func TestChangeID_ContentAddressed(t *testing.T) {
	a := EntityCreated{ID: ident.Seq(1)}
	assert.Equal(t, ChangeID(a), ChangeID(EntityCreated{ID: ident.Seq(1)}))
	assert.NotEqual(t, ChangeID(a), ChangeID(EntityCreated{ID: ident.Seq(2)}))
	assert.Len(t, ChangeID(a), 64)
}
