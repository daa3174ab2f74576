package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is an opaque, comparable handle to one entity.
type ID uuid.UUID

// Nil is the zero identity. No live entity ever carries it.
var Nil ID

// IsNil reports whether id is the zero identity.
func (id ID) IsNil() bool {
	return id == Nil
}

// String returns the hyphenated UUID form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Short returns the last 8 hex characters, enough to tell entities apart in logs.
func (id ID) Short() string {
	s := id.String()
	return s[len(s)-8:]
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("parse identity %q: %w", data, err)
	}
	*id = ID(u)
	return nil
}

// Parse parses the hyphenated UUID form of an identity.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("parse identity %q: %w", s, err)
	}
	return ID(u), nil
}

// Less orders identities by their byte representation. Used wherever a
// deterministic iteration order over a set of identities is required.
func Less(a, b ID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Compare is the three-way form of Less, suitable for slices.SortFunc.
func Compare(a, b ID) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}
