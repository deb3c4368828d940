package leds

import (
	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/kernel"
)

// Fake is a fake LED capsule that tracks which LEDs are lit.
type Fake struct {
	count int
	lit   map[int]bool
}

var _ kernel.Driver = (*Fake)(nil)

// NewFake creates a capsule with count LEDs, all off.
func NewFake(count int) *Fake {
	return &Fake{count: count, lit: make(map[int]bool)}
}

// ID implements kernel.Driver.
func (f *Fake) ID() uint32 { return DriverID }

// Command answers count, on, off and toggle like the LED capsule.
func (f *Fake) Command(_ *kernel.Kernel, commandID, arg0, _ uint32) abi.CommandReturn {
	if commandID == cmdCount {
		return abi.ReturnSuccessU32(uint32(f.count))
	}
	n := int(arg0)
	if n >= f.count {
		return abi.ReturnFailure(abi.ErrInvalid)
	}
	switch commandID {
	case cmdOn:
		f.lit[n] = true
	case cmdOff:
		f.lit[n] = false
	case cmdToggle:
		f.lit[n] = !f.lit[n]
	default:
		return abi.ReturnFailure(abi.ErrNoSupport)
	}
	return abi.ReturnSuccess()
}

// Lit reports whether LED n is on.
func (f *Fake) Lit(n int) bool {
	return f.lit[n]
}
