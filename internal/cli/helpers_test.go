package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const passingScenario = `name: button_press
description: enable button 0 and observe a press
driver: buttons
expect:
  - command: {driver_id: 3, command_id: 0, return: {success_u32: 2}}
  - subscribe: {driver_id: 3, subscribe_id: 0}
  - command: {driver_id: 3, command_id: 1, argument0: 0}
  - yield_wait: {}
steps:
  - call: open
  - call: enable
    button: 0
  - ready: {driver_id: 3, subscribe_id: 0, args: [0, 1, 0]}
  - call: wait
    want: {button: 0, state: pressed}
`

const failingScenario = `name: wrong_button
description: the driver enables button 1 instead of 0
driver: buttons
expect:
  - command: {driver_id: 3, command_id: 0, return: {success_u32: 2}}
  - subscribe: {driver_id: 3, subscribe_id: 0}
  - command: {driver_id: 3, command_id: 1, argument0: 0}
steps:
  - call: open
  - call: enable
    button: 1
`

const ledScenario = `name: led_on
description: turn on an LED
driver: leds
fake_count: 2
expect:
  - command: {driver_id: 2, command_id: 0}
  - command: {driver_id: 2, command_id: 1, argument0: 1}
steps:
  - call: open
  - call: "on"
    led: 1
    want: {lit: true}
`

// writeScenarios creates a directory holding the given files.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
