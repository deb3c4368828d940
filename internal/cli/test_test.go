package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fakekernel/internal/store"
	"github.com/roach88/fakekernel/internal/testutil"
)

func TestTest_AllPass(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"button_press.yaml": passingScenario,
		"led_on.yaml":       ledScenario,
	})

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ button_press")
	assert.Contains(t, out, "✓ led_on")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTest_FailureExitCode(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"button_press.yaml": passingScenario,
		"wrong_button.yaml": failingScenario,
	})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_button")
	assert.Contains(t, out, "ARGUMENT_MISMATCH")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTest_LoadErrorIsFailure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"broken.yaml": "name: broken\n",
	})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_SchemaErrorIsFailure(t *testing.T) {
	// Lowercase error names parse but are outside the schema.
	dir := writeScenarios(t, map[string]string{
		"lowercase.yaml": `name: lowercase
description: the schema only accepts upper-case error names
driver: buttons
expect:
  - command: {driver_id: 3, command_id: 0, return: {failure: nomem}}
steps:
  - call: open
    want_error: NOMEM
`,
	})

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ lowercase.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTest_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"button_press.yaml": passingScenario,
		"wrong_button.yaml": failingScenario,
	})

	out, _, err := execute(t, "test", dir, "--filter", "button_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, _, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_JSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"button_press.yaml": passingScenario,
		"wrong_button.yaml": failingScenario,
	})

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestsFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "button_press", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, "wrong_button", resp.Data.Scenarios[1].Name)
	assert.NotEmpty(t, resp.Data.Scenarios[1].Errors)
}

func TestTest_GoldenUpdateThenCompare(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"button_press.yaml": passingScenario})
	golden := filepath.Join(t.TempDir(), "golden")

	out, _, err := execute(t, "test", dir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ button_press (golden updated)")

	data, err := os.ReadFile(filepath.Join(golden, "button_press.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"syscall":"yield-wait"`)

	_, _, err = execute(t, "test", dir, "--golden", golden)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "button_press.golden"), []byte("{}\n"), 0644))
	out, _, err = execute(t, "test", dir, "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "trace differs from golden file")
}

func TestTest_UpdateRequiresGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"button_press.yaml": passingScenario})

	_, _, err := execute(t, "test", dir, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_PersistsRuns(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"button_press.yaml": passingScenario,
		"wrong_button.yaml": failingScenario,
	})
	db := filepath.Join(t.TempDir(), "runs.db")

	opts := &TestOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		runIDs:      testutil.NewSequentialRunIDs("run"),
	}
	cmd := NewTestCommand(opts.RootOptions)
	cmd.SetOut(&discard{})
	cmd.SetErr(&discard{})
	err := runTests(context.Background(), opts, dir, cmd)
	require.Error(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-0001", runs[0].ID)
	assert.Equal(t, "button_press", runs[0].Scenario)
	assert.True(t, runs[0].Passed)
	assert.Equal(t, "run-0002", runs[1].ID)
	assert.False(t, runs[1].Passed)

	failed, err := st.ReadRun(context.Background(), "run-0002")
	require.NoError(t, err)
	require.NotEmpty(t, failed.Events)
	assert.Equal(t, "violation", string(failed.Events[len(failed.Events)-1].Type))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
