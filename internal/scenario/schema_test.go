package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsScenarios(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			data, err := os.ReadFile(f)
			require.NoError(t, err)
			assert.NoError(t, Validate(data))
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "name: n\ndescription: d\ndriver: sensors\nsteps: [{call: open}]\n"},
		{"unknown field", "name: n\ndescription: d\ndriver: buttons\nstepz: [{call: open}]\n"},
		{"missing steps", "name: n\ndescription: d\ndriver: buttons\n"},
		{"empty steps", "name: n\ndescription: d\ndriver: buttons\nsteps: []\n"},
		{"negative argument", `name: n
description: d
driver: buttons
expect:
  - command: {driver_id: 3, command_id: 1, argument0: -1}
steps: [{call: open}]
`},
		{"unknown error name", `name: n
description: d
driver: buttons
expect:
  - command: {driver_id: 3, command_id: 1, return: {failure: ENOMEM}}
steps: [{call: open}]
`},
		{"bad exit kind", `name: n
description: d
driver: buttons
expect:
  - exit: {kind: halt, code: 0}
steps: [{call: open}]
`},
		{"wrong state", "name: n\ndescription: d\ndriver: buttons\nsteps: [{call: wait, want: {state: held}}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.content))
			require.Error(t, err)

			var se *SchemaError
			require.True(t, errors.As(err, &se), "want *SchemaError, got %T: %v", err, err)
			assert.NotEmpty(t, se.Messages)
		})
	}
}

func TestValidate_NotYAML(t *testing.T) {
	err := Validate([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateFile(t *testing.T) {
	s, err := ValidateFile("testdata/scenarios/led_toggle.yaml")
	require.NoError(t, err)
	assert.Equal(t, "led_toggle", s.Name)

	_, err = ValidateFile("testdata/invalid/bad_driver.yaml")
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "testdata/invalid/bad_driver.yaml", se.File)
	assert.Contains(t, se.Error(), "testdata/invalid/bad_driver.yaml: ")
}
