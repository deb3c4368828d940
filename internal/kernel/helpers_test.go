package kernel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireViolation runs fn against a kernel using the default panic
// reporter and returns the reported violation.
func requireViolation(t *testing.T, code ProtocolErrorCode, fn func()) *ProtocolError {
	t.Helper()

	var pe *ProtocolError
	func() {
		defer func() {
			pe = AsProtocolError(recover())
		}()
		fn()
	}()

	require.NotNil(t, pe, "expected a %s protocol violation", code)
	assert.Equal(t, code, pe.Code)
	return pe
}

// recordingReporter collects violations and returns, which lets tests see
// what the dispatcher hands back when a reporter does not stop execution.
type recordingReporter struct {
	reports []string
}

func (r *recordingReporter) Helper() {}

func (r *recordingReporter) Fatal(args ...any) {
	r.reports = append(r.reports, fmt.Sprint(args...))
}

// upcallLog records every upcall invocation.
type upcallLog struct {
	calls [][4]uint64
}

func (l *upcallLog) fn(arg0, arg1, arg2 uint32, userdata uintptr) {
	l.calls = append(l.calls, [4]uint64{uint64(arg0), uint64(arg1), uint64(arg2), uint64(userdata)})
}
