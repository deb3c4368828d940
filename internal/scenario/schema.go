package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// SchemaError lists the places a document disagrees with the scenario schema.
type SchemaError struct {
	File     string
	Messages []string
}

func (e *SchemaError) Error() string {
	prefix := "schema"
	if e.File != "" {
		prefix = e.File
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Messages, "; "))
}

// Validate checks a scenario document against the embedded CUE schema.
// It returns a *SchemaError for schema violations and a plain error when
// the document is not YAML at all.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return &SchemaError{Messages: messages(err)}
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Messages: messages(err)}
	}
	return nil
}

// ValidateFile runs the schema check and then the structural checks
// LoadScenario performs.
func ValidateFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if err := Validate(data); err != nil {
		if se, ok := err.(*SchemaError); ok {
			se.File = path
			return nil, se
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

func messages(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, e.Error())
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
