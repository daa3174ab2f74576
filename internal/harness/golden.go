package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rewind/internal/canon"
	"github.com/roach88/rewind/internal/undo"
)

// JournalSnapshot captures the complete journal for a scenario execution.
// Serialized as canonical JSON for deterministic comparison.
type JournalSnapshot struct {
	ScenarioName string              `json:"scenario_name"`
	Journal      []undo.JournalEntry `json:"journal"`
}

// MarshalSnapshot returns the canonical golden bytes for a result.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return canon.Marshal(JournalSnapshot{
		ScenarioName: scenarioName,
		Journal:      result.Journal,
	})
}

// RunWithGolden executes a scenario and compares the journal against a golden
// file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the journal doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's journal against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
