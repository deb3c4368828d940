// Package buttons is a userspace driver for the kernel's button capsule.
//
// It enumerates buttons, enables per-button interrupts and delivers press
// and release events to a callback registered at construction time.
package buttons

import (
	"errors"
	"fmt"

	"github.com/roach88/fakekernel/internal/abi"
)

// DriverID is the capsule number of the button driver.
const DriverID uint32 = 0x00003

const (
	cmdCount            uint32 = 0
	cmdEnableInterrupt  uint32 = 1
	cmdDisableInterrupt uint32 = 2
	cmdRead             uint32 = 3
)

// SubscribeCallback is the subscribe slot for button events.
const SubscribeCallback uint32 = 0

var (
	// ErrNotSupported is returned when the kernel reports no buttons.
	ErrNotSupported = errors.New("buttons: not supported")

	// ErrSubscriptionFailed is returned when the kernel rejects the
	// event callback for lack of memory.
	ErrSubscriptionFailed = errors.New("buttons: subscription failed")

	// ErrActivationFailed is returned when enabling or disabling a button
	// interrupt fails for lack of memory.
	ErrActivationFailed = errors.New("buttons: activation failed")
)

// UnexpectedError wraps a kernel error code the driver has no mapping for.
type UnexpectedError struct {
	Op   string
	Code abi.ErrorCode
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("buttons: %s: unexpected kernel error %s", e.Op, e.Code)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Code
}

// State is the level of a button.
type State uint32

const (
	Released State = 0
	Pressed  State = 1
)

func (s State) String() string {
	switch s {
	case Released:
		return "released"
	case Pressed:
		return "pressed"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// ParseState maps "pressed"/"released" to a State.
func ParseState(s string) (State, error) {
	switch s {
	case "pressed":
		return Pressed, nil
	case "released":
		return Released, nil
	default:
		return 0, fmt.Errorf("unknown button state %q", s)
	}
}

// Callback receives button events.
type Callback func(button int, state State)

// Buttons is an open handle to the button capsule.
type Buttons struct {
	sys      abi.Syscalls
	count    int
	callback Callback
}

// New queries the number of buttons and subscribes cb for events.
// A nil cb subscribes a callback that discards events.
func New(sys abi.Syscalls, cb Callback) (*Buttons, error) {
	if cb == nil {
		cb = func(int, State) {}
	}

	ret := sys.Command(DriverID, cmdCount, 0, 0)
	count, ok := ret.U32()
	if !ok || count == 0 {
		return nil, ErrNotSupported
	}

	b := &Buttons{
		sys:      sys,
		count:    int(count),
		callback: cb,
	}

	sub := sys.Subscribe(DriverID, SubscribeCallback, b.upcall, 0)
	switch {
	case sub.OK():
		return b, nil
	case sub.Err == abi.ErrNoMem:
		return nil, ErrSubscriptionFailed
	default:
		return nil, &UnexpectedError{Op: "subscribe", Code: sub.Err}
	}
}

func (b *Buttons) upcall(buttonNum, state, _ uint32, _ uintptr) {
	b.callback(int(buttonNum), State(state))
}

// Count returns the number of buttons reported by the kernel.
func (b *Buttons) Count() int {
	return b.count
}

// Enable turns on interrupts for button n.
func (b *Buttons) Enable(n int) error {
	return b.activation("enable", b.sys.Command(DriverID, cmdEnableInterrupt, uint32(n), 0))
}

// Disable turns off interrupts for button n.
func (b *Buttons) Disable(n int) error {
	return b.activation("disable", b.sys.Command(DriverID, cmdDisableInterrupt, uint32(n), 0))
}

func (b *Buttons) activation(op string, ret abi.CommandReturn) error {
	if ret.IsSuccess() {
		return nil
	}
	code, _ := ret.Err()
	if code == abi.ErrNoMem {
		return ErrActivationFailed
	}
	return &UnexpectedError{Op: op, Code: code}
}

// Read returns the current level of button n.
func (b *Buttons) Read(n int) (State, error) {
	ret := b.sys.Command(DriverID, cmdRead, uint32(n), 0)
	if v, ok := ret.U32(); ok {
		return State(v), nil
	}
	if ret.Variant == abi.Success {
		return Released, nil
	}
	code, ok := ret.Err()
	if !ok {
		code = abi.ErrBadRVal
	}
	return 0, &UnexpectedError{Op: "read", Code: code}
}

// Close unsubscribes the event callback and disables every button.
// Errors from disabling are ignored.
func (b *Buttons) Close() {
	b.sys.Subscribe(DriverID, SubscribeCallback, nil, 0)
	for n := 0; n < b.count; n++ {
		_ = b.Disable(n)
	}
}
