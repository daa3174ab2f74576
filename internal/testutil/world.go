package testutil

import (
	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/world"
)

// NewWorld returns a world whose identities are ident.Seq(1), ident.Seq(2), ...
// in spawn order, so the same steps always produce the same identities.
func NewWorld() *world.World {
	return world.New(world.WithGenerator(ident.NewSequentialGenerator()))
}
