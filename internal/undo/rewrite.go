package undo

import (
	"reflect"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/reflectx"
)

// MaxRewriteDepth bounds how many descent steps the rewriter takes below the
// value it was handed. Deeper references are left untouched.
const MaxRewriteDepth = 16

var identType = reflect.TypeFor[ident.ID]()

// RewriteFunc receives a settable value of the target type and reports
// whether it changed it.
type RewriteFunc func(v reflect.Value) bool

// RewriteRefs walks v and calls fn on every settable sub-value whose type is
// exactly target. Records descend through exported fields, lists and arrays
// descend per element, maps per value (copied out and written back only when
// changed), variants into their payload, and pointers into their pointee.
// Leaves of any other type are ignored. It reports whether fn changed anything.
//
// v must be addressable for in-place writes; unaddressable parts are visited
// but never passed to fn.
func RewriteRefs(v reflect.Value, target reflect.Type, fn RewriteFunc) bool {
	return rewriteValue(v, target, fn, MaxRewriteDepth)
}

func rewriteValue(v reflect.Value, target reflect.Type, fn RewriteFunc, budget int) bool {
	if !v.IsValid() || budget < 0 {
		return false
	}
	if v.Type() == target {
		return v.CanSet() && fn(v)
	}

	changed := false
	switch reflectx.Classify(v.Type()) {
	case reflectx.ShapeRecord:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			changed = rewriteValue(v.Field(i), target, fn, budget-1) || changed
		}

	case reflectx.ShapeList, reflectx.ShapeArray:
		for i := 0; i < v.Len(); i++ {
			changed = rewriteValue(v.Index(i), target, fn, budget-1) || changed
		}

	case reflectx.ShapeMap:
		if v.IsNil() {
			break
		}
		iter := v.MapRange()
		for iter.Next() {
			elem := reflect.New(v.Type().Elem()).Elem()
			elem.Set(iter.Value())
			if rewriteValue(elem, target, fn, budget-1) {
				v.SetMapIndex(iter.Key(), elem)
				changed = true
			}
		}

	case reflectx.ShapeVariant:
		if v.IsNil() {
			break
		}
		payload := reflect.New(v.Elem().Type()).Elem()
		payload.Set(v.Elem())
		if rewriteValue(payload, target, fn, budget-1) && v.CanSet() {
			v.Set(payload)
			changed = true
		}

	case reflectx.ShapePointer:
		if v.IsNil() {
			break
		}
		changed = rewriteValue(v.Elem(), target, fn, budget-1)
	}
	return changed
}

// resolveRefs replaces every identity in v with its resolution through remap.
func resolveRefs(v reflect.Value, remap *Remap) bool {
	return RewriteRefs(v, identType, func(f reflect.Value) bool {
		cur := f.Interface().(ident.ID)
		next := remap.Resolve(cur)
		if next == cur {
			return false
		}
		f.Set(reflect.ValueOf(next))
		return true
	})
}

// holdsStaleRefs reports whether v embeds an identity remap would move.
func holdsStaleRefs(v reflect.Value, remap *Remap) bool {
	if remap.Len() == 0 {
		return false
	}
	scratch := reflect.New(v.Type()).Elem()
	scratch.Set(v)
	return RewriteRefs(scratch, identType, func(f reflect.Value) bool {
		cur := f.Interface().(ident.ID)
		return remap.Resolve(cur) != cur
	})
}
