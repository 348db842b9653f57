package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenarioYAML = `name: short-submit
description: >
  Two flips are answered during the short session and the deadline tick
  submits the payload.
epoch: 5
flips:
  - hash: reddit
    hex: "0xcac584696d6741c3c28001"
  - hash: meme
    hex: "0xcac584696d6741c3c28001"
steps:
  - phase: { epoch: 5, period: short_session }
  - wait: session_loaded
  - answer: left
  - next: true
  - answer: right
  - wait: can_submit
  - tick: 1
  - wait: short_submitted
assertions:
  - type: event_count
    event: short_answers_submitted
    count: 1
`

const failingScenarioYAML = `name: phantom-reset
description: Expects an epoch reset that never happens.
epoch: 5
flips:
  - hash: reddit
    hex: "0xcac584696d6741c3c28001"
steps:
  - phase: { epoch: 5, period: short_session }
  - wait: session_loaded
assertions:
  - type: event_count
    event: epoch_reset
    count: 1
`

func writeScenarioFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newSimulateCommand(format string) (*bytes.Buffer, *cobra.Command) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewSimulateCommand(rootOpts)
	cmd.SetOut(buf)
	return buf, cmd
}

func TestSimulateCommandSingleFile(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "short-submit.yaml", passingScenarioYAML)

	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ short-submit")
	assert.Contains(t, output, "Simulation Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestSimulateCommandFailingScenario(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "phantom-reset.yaml", failingScenarioYAML)

	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ phantom-reset")
	assert.Contains(t, output, "Assertion failed: event_count")
	assert.Contains(t, output, "Simulation Summary: 0 passed, 1 failed, 1 total")
}

func TestSimulateCommandDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "short-submit.yaml", passingScenarioYAML)
	writeScenarioFile(t, dir, "phantom-reset.yaml", failingScenarioYAML)

	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Simulation Summary: 1 passed, 1 failed, 2 total")
}

func TestSimulateCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "short-submit.yaml", passingScenarioYAML)
	writeScenarioFile(t, dir, "phantom-reset.yaml", failingScenarioYAML)

	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{dir, "--filter", "short-*"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Simulation Summary: 1 passed, 0 failed, 1 total")
}

func TestSimulateCommandLoadError(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "broken.yaml", "name: broken\n")

	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "Load error:")
}

func TestSimulateCommandPathNotFound(t *testing.T) {
	_, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestSimulateCommandEmptyDirectory(t *testing.T) {
	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestSimulateCommandEmptyDirectoryJSON(t *testing.T) {
	buf, cmd := newSimulateCommand("json")
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestSimulateCommandFailureJSON(t *testing.T) {
	path := writeScenarioFile(t, t.TempDir(), "phantom-reset.yaml", failingScenarioYAML)

	buf, cmd := newSimulateCommand("json")
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["failed"])
}

func TestSimulateCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeScenarioFile(t, dir, "short-submit.yaml", passingScenarioYAML)
	goldenPath := filepath.Join(dir, "golden", "short-submit.golden")

	// First run regenerates the golden file
	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{path, "--update"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "(golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "short-submit"`)

	// The replay is deterministic, so the next run matches it
	buf, cmd = newSimulateCommand("text")
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ short-submit")

	// A stale golden file fails the scenario
	require.NoError(t, os.WriteFile(goldenPath, append(golden, 'x'), 0644))
	buf, cmd = newSimulateCommand("text")
	cmd.SetArgs([]string{path})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Golden file mismatch")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "one.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "two.yml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "epoch-rollover.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "epoch-reset.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "short-submit.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "epoch-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	for _, f := range files {
		assert.Contains(t, filepath.Base(f), "epoch-")
	}
}

func TestFindScenarioFilesSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "nested")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.yaml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.yaml"), []byte(""), 0644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.yml", "/path/to/golden/scenario.golden"},
		{"scenarios/rollover.yaml", "scenarios/golden/rollover.golden"},
	}

	for _, tc := range testCases {
		result := goldenFilePath(tc.input)
		assert.Equal(t, tc.expected, result)
	}
}

func TestSimulateHelpText(t *testing.T) {
	buf, cmd := newSimulateCommand("text")
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "scenario")
	assert.Contains(t, output, "--update")
	assert.Contains(t, output, "--filter")
	assert.Contains(t, output, "golden")
}
