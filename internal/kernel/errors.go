package kernel

import (
	"errors"
	"fmt"
)

// ProtocolErrorCode categorizes protocol violations.
type ProtocolErrorCode string

const (
	// ErrCodeQueueExhausted indicates a syscall arrived with no expectation left.
	ErrCodeQueueExhausted ProtocolErrorCode = "QUEUE_EXHAUSTED"

	// ErrCodeWrongSyscall indicates the syscall class differs from the expected one.
	ErrCodeWrongSyscall ProtocolErrorCode = "WRONG_SYSCALL"

	// ErrCodeArgumentMismatch indicates the right class with different arguments.
	ErrCodeArgumentMismatch ProtocolErrorCode = "ARGUMENT_MISMATCH"

	// ErrCodeDeadlock indicates a yield-wait with no ready upcall and no skip flag.
	ErrCodeDeadlock ProtocolErrorCode = "DEADLOCK"

	// ErrCodeNotSubscribed indicates MarkReady on a slot with no subscription.
	ErrCodeNotSubscribed ProtocolErrorCode = "NOT_SUBSCRIBED"

	// ErrCodeAfterExit indicates a syscall issued after exit.
	ErrCodeAfterExit ProtocolErrorCode = "SYSCALL_AFTER_EXIT"

	// ErrCodeUnconsumed indicates expectations left in the queue at the end of a test.
	ErrCodeUnconsumed ProtocolErrorCode = "UNCONSUMED_EXPECTATIONS"
)

// ProtocolError describes a deviation from the expected syscall sequence.
// Expected and Actual are rendered calls; either may be empty when the
// violation has no counterpart (e.g. an exhausted queue has no expected call).
type ProtocolError struct {
	Code     ProtocolErrorCode
	Expected string
	Actual   string
	Message  string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsProtocolError reports whether err wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// AsProtocolError extracts a *ProtocolError from a recovered panic value
// or an error. Returns nil if v carries none.
func AsProtocolError(v any) *ProtocolError {
	switch val := v.(type) {
	case *ProtocolError:
		return val
	case error:
		var pe *ProtocolError
		if errors.As(val, &pe) {
			return pe
		}
	}
	return nil
}

func newMismatchError(expected, actual fmt.Stringer, sameKind bool) *ProtocolError {
	code := ErrCodeWrongSyscall
	if sameKind {
		code = ErrCodeArgumentMismatch
	}
	return &ProtocolError{
		Code:     code,
		Expected: expected.String(),
		Actual:   actual.String(),
		Message: fmt.Sprintf("expected system call %s, but %s was called instead",
			expected, actual),
	}
}

func newExhaustedError(actual fmt.Stringer) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeQueueExhausted,
		Actual:  actual.String(),
		Message: fmt.Sprintf("unexpected system call %s: no expected system calls remain", actual),
	}
}

func newDeadlockError(expected fmt.Stringer) *ProtocolError {
	return &ProtocolError{
		Code:     ErrCodeDeadlock,
		Expected: expected.String(),
		Actual:   expected.String(),
		Message:  fmt.Sprintf("%s would block forever: no upcall is ready", expected),
	}
}

func newAfterExitError(actual fmt.Stringer, status ExitStatus) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeAfterExit,
		Actual:  actual.String(),
		Message: fmt.Sprintf("system call %s issued after exit (%s, code %d)", actual, status.Kind, status.Code),
	}
}

func newNotSubscribedError(driverID, subscribeID uint32) *ProtocolError {
	return &ProtocolError{
		Code:    ErrCodeNotSubscribed,
		Message: fmt.Sprintf("upcall marked ready for driver %d slot %d, which has no subscription", driverID, subscribeID),
	}
}

func newUnconsumedError(remaining []fmt.Stringer) *ProtocolError {
	msg := fmt.Sprintf("%d expected system call(s) never happened:", len(remaining))
	for _, r := range remaining {
		msg += "\n  " + r.String()
	}
	expected := ""
	if len(remaining) > 0 {
		expected = remaining[0].String()
	}
	return &ProtocolError{
		Code:     ErrCodeUnconsumed,
		Expected: expected,
		Message:  msg,
	}
}
