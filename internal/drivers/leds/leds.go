// Package leds is a userspace driver for the kernel's LED capsule.
package leds

import (
	"errors"
	"fmt"

	"github.com/roach88/fakekernel/internal/abi"
)

// DriverID is the capsule number of the LED driver.
const DriverID uint32 = 0x00002

const (
	cmdCount  uint32 = 0
	cmdOn     uint32 = 1
	cmdOff    uint32 = 2
	cmdToggle uint32 = 3
)

// ErrNotSupported is returned when the board has no LEDs.
var ErrNotSupported = errors.New("leds: not supported")

// LEDs is an open handle to the LED capsule.
type LEDs struct {
	sys   abi.Syscalls
	count int
}

// New queries the number of LEDs.
func New(sys abi.Syscalls) (*LEDs, error) {
	count, ok := sys.Command(DriverID, cmdCount, 0, 0).U32()
	if !ok || count == 0 {
		return nil, ErrNotSupported
	}
	return &LEDs{sys: sys, count: int(count)}, nil
}

// Count returns the number of LEDs reported by the kernel.
func (l *LEDs) Count() int { return l.count }

// On turns LED n on.
func (l *LEDs) On(n int) error {
	return l.command("on", cmdOn, n)
}

// Off turns LED n off.
func (l *LEDs) Off(n int) error {
	return l.command("off", cmdOff, n)
}

// Toggle flips LED n.
func (l *LEDs) Toggle(n int) error {
	return l.command("toggle", cmdToggle, n)
}

func (l *LEDs) command(op string, cmd uint32, n int) error {
	if err := l.sys.Command(DriverID, cmd, uint32(n), 0).Result(); err != nil {
		return fmt.Errorf("leds: %s %d: %w", op, n, err)
	}
	return nil
}
