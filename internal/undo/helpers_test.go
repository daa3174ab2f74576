package undo

import (
	"context"
	"testing"

	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/world"
)

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *world.World) {
	t.Helper()
	w := testutil.NewWorld()
	return New(w, opts...), w
}

func tickN(e *Engine, n int) []TickReport {
	reports := make([]TickReport, n)
	for i := range reports {
		reports[i] = e.Tick(context.Background())
	}
	return reports
}

// recordingChange logs its calls into a shared slice.
type recordingChange struct {
	name string
	log  *[]string
	err  error
}

func (c recordingChange) Revert(World, *Remap) (Outcome, error) {
	*c.log = append(*c.log, "revert "+c.name)
	return Outcome{}, c.err
}

func (c recordingChange) Apply(World, *Remap) (Outcome, error) {
	*c.log = append(*c.log, "apply "+c.name)
	return Outcome{}, c.err
}

func (c recordingChange) Describe() string {
	return "recording " + c.name
}
