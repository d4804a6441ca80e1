package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: two_headings
description: "Swap two headings"
steps:
  - insert: {heading: "A"}
  - insert: {heading: "B"}
  - move: {order: 2, direction: up}
    expect: {changed: true}
assertions:
  - type: view
    blocks:
      - "1 heading B"
      - "2 heading A"
`

const failingScenario = `name: wrong_view
description: "Asserts the wrong order"
steps:
  - insert: {heading: "A"}
assertions:
  - type: view
    blocks:
      - "1 heading Z"
`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestTestCommandMissingArgs(t *testing.T) {
	opts := testOptions(t, "text")
	_, err := execute(t, NewTestCommand(opts))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	opts := testOptions(t, "text")
	_, err := execute(t, NewTestCommand(opts), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	opts := testOptions(t, "text")
	out, err := execute(t, NewTestCommand(opts), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandRepositoryScenarios(t *testing.T) {
	opts := testOptions(t, "text")
	out, err := execute(t, NewTestCommand(opts), scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ reorder_basic")
	assert.Contains(t, out, "✓ delete_compacts")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	opts := testOptions(t, "json")
	out, err := execute(t, NewTestCommand(opts), scenariosDir, "--filter", "reorder_*")
	require.NoError(t, err, out)

	result, resp := decodeData[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "reorder_basic", result.Scenarios[0].Name)
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "pass.yaml", passingScenario)
	writeScenario(t, dir, "fail.yaml", failingScenario)

	opts := testOptions(t, "json")
	out, err := execute(t, NewTestCommand(opts), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	result, resp := decodeData[TestResult](t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps: [\n")

	opts := testOptions(t, "text")
	out, err := execute(t, NewTestCommand(opts), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "two_headings.yaml", passingScenario)

	opts := testOptions(t, "text")
	out, err := execute(t, NewTestCommand(opts), dir, "--update")
	require.NoError(t, err, out)

	goldenPath := filepath.Join(dir, "golden", "two_headings.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "two_headings"`)

	// A second run compares against the new golden file.
	out, err = execute(t, NewTestCommand(opts), dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ two_headings")

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0644))
	out, err = execute(t, NewTestCommand(opts), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	got := goldenFilePath(filepath.Join("a", "b", "reorder.yaml"))
	assert.Equal(t, filepath.Join("a", "b", "golden", "reorder.golden"), got)
}
