package harness

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/undo"
)

// kindBinding ties a scenario kind name to a Go type and its tracker.
type kindBinding struct {
	typ   reflect.Type
	track func(e *undo.Engine)
}

func bind[T any]() kindBinding {
	return kindBinding{
		typ:   reflect.TypeFor[T](),
		track: func(e *undo.Engine) { undo.Track[T](e) },
	}
}

var kinds = map[string]kindBinding{
	"counter":   bind[testutil.Counter](),
	"label":     bind[testutil.Label](),
	"link":      bind[testutil.Link](),
	"group":     bind[testutil.Group](),
	"transform": bind[testutil.Transform](),
}

func lookupKind(name string) (kindBinding, bool) {
	b, ok := kinds[name]
	return b, ok
}

// kindOf is lookupKind for callers that report the miss as an error.
func kindOf(name string) (kindBinding, error) {
	b, ok := kinds[name]
	if !ok {
		return kindBinding{}, fmt.Errorf("unknown kind %q", name)
	}
	return b, nil
}

// KindNames returns the kind names scenarios may use, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
