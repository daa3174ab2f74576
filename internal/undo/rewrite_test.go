package undo

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/testutil"
)

type refHolder struct {
	Direct ident.ID
	List   []ident.ID
	Arr    [2]ident.ID
	Map    map[string]ident.ID
	Links  map[string]testutil.Link
	Any    any
	Ptr    *ident.ID
	Other  string
	hidden ident.ID
}

type refNode struct {
	Ref  ident.ID
	Next *refNode
}

func remapOneToTwo() *Remap {
	r := NewRemap()
	r.Merge(Pair{Original: ident.Seq(1), Current: ident.Seq(2)})
	return r
}

func TestRewriteRefs_AllShapes(t *testing.T) {
	one := ident.Seq(1)
	h := refHolder{
		Direct: one,
		List:   []ident.ID{one, ident.Seq(3)},
		Arr:    [2]ident.ID{one, one},
		Map:    map[string]ident.ID{"a": one, "b": ident.Seq(3)},
		Links:  map[string]testutil.Link{"l": {Target: one}},
		Any:    one,
		Ptr:    &one,
		Other:  "x",
		hidden: ident.Seq(1),
	}

	changed := resolveRefs(reflect.ValueOf(&h).Elem(), remapOneToTwo())
	require.True(t, changed)

	two := ident.Seq(2)
	assert.Equal(t, two, h.Direct)
	assert.Equal(t, []ident.ID{two, ident.Seq(3)}, h.List)
	assert.Equal(t, [2]ident.ID{two, two}, h.Arr)
	assert.Equal(t, map[string]ident.ID{"a": two, "b": ident.Seq(3)}, h.Map)
	assert.Equal(t, testutil.Link{Target: two}, h.Links["l"])
	assert.Equal(t, two, h.Any)
	assert.Equal(t, two, *h.Ptr)
	assert.Equal(t, "x", h.Other)
	assert.Equal(t, ident.Seq(1), h.hidden, "unexported fields are not visited")
}

func TestRewriteRefs_NothingToChange(t *testing.T) {
	h := refHolder{Direct: ident.Seq(5), List: []ident.ID{ident.Seq(6)}}
	assert.False(t, resolveRefs(reflect.ValueOf(&h).Elem(), remapOneToTwo()))
	assert.False(t, resolveRefs(reflect.ValueOf(&h).Elem(), NewRemap()))
}

func TestRewriteRefs_NilContainers(t *testing.T) {
	var h refHolder
	assert.NotPanics(t, func() {
		resolveRefs(reflect.ValueOf(&h).Elem(), remapOneToTwo())
	})
}

func TestRewriteRefs_DepthBudget(t *testing.T) {
	var head *refNode
	for i := 0; i < 10; i++ {
		head = &refNode{Ref: ident.Seq(1), Next: head}
	}

	resolveRefs(reflect.ValueOf(head).Elem(), remapOneToTwo())

	// Node k's Ref sits 2k+1 descents below the head.
	depth := 0
	for n := head; n != nil; n = n.Next {
		if 2*depth+1 <= MaxRewriteDepth {
			assert.Equal(t, ident.Seq(2), n.Ref, "node %d within budget", depth)
		} else {
			assert.Equal(t, ident.Seq(1), n.Ref, "node %d beyond budget", depth)
		}
		depth++
	}
}

func TestRewriteRefs_UnaddressableNeverWritten(t *testing.T) {
	h := refHolder{Direct: ident.Seq(1)}
	changed := resolveRefs(reflect.ValueOf(h), remapOneToTwo())
	assert.False(t, changed)
	assert.Equal(t, ident.Seq(1), h.Direct)
}

func TestRewriteRefs_OtherTargetType(t *testing.T) {
	v := testutil.Label{Text: "hello"}
	changed := RewriteRefs(reflect.ValueOf(&v).Elem(), reflect.TypeFor[string](), func(f reflect.Value) bool {
		f.SetString(strings.ToUpper(f.String()))
		return true
	})
	assert.True(t, changed)
	assert.Equal(t, "HELLO", v.Text)
}

func TestHoldsStaleRefs(t *testing.T) {
	h := refHolder{List: []ident.ID{ident.Seq(1)}}
	v := reflect.ValueOf(h)

	assert.True(t, holdsStaleRefs(v, remapOneToTwo()))
	assert.Equal(t, ident.Seq(1), h.List[0], "probing must not write")
	assert.False(t, holdsStaleRefs(v, NewRemap()))
}
