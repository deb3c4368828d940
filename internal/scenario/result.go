package scenario

import (
	"fmt"

	"github.com/roach88/fakekernel/internal/trace"
)

// Result is the outcome of running one scenario.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true when every step succeeded and every expectation was
	// consumed without a protocol violation.
	Pass bool `json:"pass"`

	// Errors holds failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace is everything the kernel recorded, violations included.
	Trace []trace.Event `json:"trace"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(name string) *Result {
	return &Result{
		Scenario: name,
		Pass:     true,
		Errors:   []string{},
		Trace:    []trace.Event{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// StepError describes a step whose outcome differed from what it wanted.
type StepError struct {
	Index    int
	Call     string
	Expected string
	Actual   string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("steps[%d] (%s): expected %s, got %s", e.Index, e.Call, e.Expected, e.Actual)
}
