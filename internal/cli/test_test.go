package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandMatchesGoldens(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--golden-dir", harnessGolden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ edit_and_undo")
	assert.Contains(t, out, "✓ group_references")
	assert.Contains(t, out, "5 passed, 0 failed, 5 total")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios,
		"--golden-dir", harnessGolden,
		"--filter", "capacity*",
		"--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "capacity_eviction", resp.Data.Scenarios[0].Name)
}

func TestTestCommandGoldenMismatchAndUpdate(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(harnessScenarios, "edit_and_undo.yaml"))
	require.NoError(t, err)
	writeFile(t, dir, "edit_and_undo.yaml", string(src))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	writeFile(t, filepath.Join(dir, "golden"), "edit_and_undo.golden", `{"journal":[],"scenario_name":"edit_and_undo"}`)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "journal does not match golden file")

	out, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	updated, err := os.ReadFile(filepath.Join(dir, "golden", "edit_and_undo.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "edit_and_undo.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(updated))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommandConfigDoesNotOverrideScenario(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "rewind.yaml", "history_capacity: 1\n")

	// capacity_eviction sets its own capacity, so its golden still matches.
	out, err := execute(t, "test", harnessScenarios,
		"--golden-dir", harnessGolden,
		"--filter", "capacity_eviction",
		"--config", cfg)
	require.NoError(t, err, out)
}
