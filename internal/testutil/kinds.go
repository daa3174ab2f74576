// Package testutil provides deterministic fixtures shared by tests and the
// scenario harness.
package testutil

import (
	"github.com/roach88/rewind/internal/ident"
)

// Counter is a plain scalar kind.
type Counter struct {
	X int `json:"x" yaml:"x"`
}

// Label is a string kind.
type Label struct {
	Text string `json:"text" yaml:"text"`
}

// Link refers to another entity.
type Link struct {
	Target ident.ID `json:"target" yaml:"target"`
}

// Group holds identities inside containers: a list, a map and an optional
// pointer.
type Group struct {
	Members []ident.ID          `json:"members" yaml:"members"`
	ByName  map[string]ident.ID `json:"by_name" yaml:"by_name"`
	Leader  *ident.ID           `json:"leader,omitempty" yaml:"leader,omitempty"`
}

// Transform is a nested record kind, the typical drag target.
type Transform struct {
	Position Vec2    `json:"position" yaml:"position"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
}

// Vec2 is a 2D vector.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}
