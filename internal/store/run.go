package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/fakekernel/internal/trace"
)

// Run is one persisted scenario execution.
type Run struct {
	ID       string
	Scenario string
	Passed   bool
	Errors   []string
	Events   []trace.Event
}

// RunIDGenerator produces run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
// It is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// marshalErrors renders failure messages as a canonical JSON array.
func marshalErrors(errs []string) (string, error) {
	arr := make([]any, len(errs))
	for i, e := range errs {
		arr[i] = e
	}
	b, err := trace.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal errors: %w", err)
	}
	return string(b), nil
}

func unmarshalErrors(s string) ([]string, error) {
	errs := []string{}
	if err := json.Unmarshal([]byte(s), &errs); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	return errs, nil
}
