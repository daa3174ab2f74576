package harness

import (
	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/undo"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Journal contains every history event in order.
	// Used for journal assertions and golden comparison.
	Journal []undo.JournalEntry `json:"journal"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Summary aggregates the journal.
	Summary store.Summary `json:"summary"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Journal: []undo.JournalEntry{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
