// Package reflectx is the reflection capability the undo subsystem consumes:
// it classifies the shape of runtime values, deep-clones them behind a
// type-erased handle, compares them, and reconstructs typed values from
// type-erased handles.
package reflectx

import (
	"errors"
	"fmt"
	"reflect"
)

// Shape classifies how a value can be descended into.
type Shape int

const (
	// ShapeLeaf is a value with no traversable fields (numbers, strings, bools,
	// funcs, channels).
	ShapeLeaf Shape = iota + 1
	// ShapeRecord is a struct; its exported fields are traversable.
	ShapeRecord
	// ShapeList is a slice.
	ShapeList
	// ShapeArray is a fixed-size array.
	ShapeArray
	// ShapeMap is a map; only stored values are traversable, never keys.
	ShapeMap
	// ShapeVariant is an interface: the active variant is its dynamic value.
	ShapeVariant
	// ShapePointer is a pointer to another value.
	ShapePointer
)

// String returns the lower-case shape name.
func (s Shape) String() string {
	switch s {
	case ShapeLeaf:
		return "leaf"
	case ShapeRecord:
		return "record"
	case ShapeList:
		return "list"
	case ShapeArray:
		return "array"
	case ShapeMap:
		return "map"
	case ShapeVariant:
		return "variant"
	case ShapePointer:
		return "pointer"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Classify returns the shape of values of type t.
func Classify(t reflect.Type) Shape {
	switch t.Kind() {
	case reflect.Struct:
		return ShapeRecord
	case reflect.Slice:
		return ShapeList
	case reflect.Array:
		return ShapeArray
	case reflect.Map:
		return ShapeMap
	case reflect.Interface:
		return ShapeVariant
	case reflect.Pointer:
		return ShapePointer
	default:
		return ShapeLeaf
	}
}

// maxCloneDepth bounds Clone on self-referential pointer graphs. Below this
// depth the clone shares structure with the source.
const maxCloneDepth = 64

// ErrNotReconstructible is returned when a type-erased handle cannot be turned
// back into a value of the requested kind.
var ErrNotReconstructible = errors.New("value cannot be reconstructed")

// Clone returns a deep copy of v behind the same dynamic type.
// Unexported struct fields are copied shallowly.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	return cloneValue(reflect.ValueOf(v), maxCloneDepth).Interface()
}

// CloneAs is the typed form of Clone.
func CloneAs[T any](v T) T {
	out, _ := cloneValue(reflect.ValueOf(&v).Elem(), maxCloneDepth).Interface().(T)
	return out
}

func cloneValue(v reflect.Value, depth int) reflect.Value {
	if depth <= 0 {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem(), depth-1))
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			f := out.Field(i)
			if !f.CanSet() {
				continue
			}
			f.Set(cloneValue(v.Field(i), depth-1))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), depth-1))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), depth-1))
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value(), depth-1))
		}
		return out

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem(), depth-1))
		return out

	default:
		return v
	}
}

// Equal reports whether a and b are deeply equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Reconstruct rebuilds a value of the given kind from a type-erased handle.
// The handle may hold the value itself or a non-nil pointer to it. The result
// is a fresh deep copy, so callers may store it without aliasing the handle.
func Reconstruct(kind reflect.Type, v any) (reflect.Value, error) {
	if kind == nil {
		return reflect.Value{}, fmt.Errorf("%w: no kind given", ErrNotReconstructible)
	}
	if v == nil {
		return reflect.Value{}, fmt.Errorf("%w: nil handle for %s", ErrNotReconstructible, kind)
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Type() == kind:
		return cloneValue(rv, maxCloneDepth), nil
	case rv.Kind() == reflect.Pointer && rv.Type().Elem() == kind:
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer for %s", ErrNotReconstructible, kind)
		}
		return cloneValue(rv.Elem(), maxCloneDepth), nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: have %s, want %s", ErrNotReconstructible, rv.Type(), kind)
	}
}

// ReconstructAs is the typed form of Reconstruct.
func ReconstructAs[T any](v any) (T, error) {
	var zero T
	rv, err := Reconstruct(reflect.TypeFor[T](), v)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// KindName returns a short, stable name for a kind, used in descriptions and
// metric labels.
func KindName(kind reflect.Type) string {
	if kind == nil {
		return "<nil>"
	}
	return kind.String()
}
