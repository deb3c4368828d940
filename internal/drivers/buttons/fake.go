package buttons

import (
	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/kernel"
)

// Fake is a fake button capsule for the fake kernel. Pressing a button
// with its interrupt enabled marks the subscribed upcall ready.
type Fake struct {
	count   int
	enabled map[int]bool
	levels  map[int]State
}

var _ kernel.Driver = (*Fake)(nil)

// NewFake creates a capsule with count buttons, all released.
func NewFake(count int) *Fake {
	return &Fake{
		count:   count,
		enabled: make(map[int]bool),
		levels:  make(map[int]State),
	}
}

func (f *Fake) ID() uint32 { return DriverID }

// Command answers count, enable, disable and read like the button capsule.
func (f *Fake) Command(_ *kernel.Kernel, commandID, arg0, _ uint32) abi.CommandReturn {
	n := int(arg0)
	switch commandID {
	case cmdCount:
		return abi.ReturnSuccessU32(uint32(f.count))
	case cmdEnableInterrupt, cmdDisableInterrupt, cmdRead:
		if n >= f.count {
			return abi.ReturnFailure(abi.ErrInvalid)
		}
	default:
		return abi.ReturnFailure(abi.ErrNoSupport)
	}

	switch commandID {
	case cmdEnableInterrupt:
		f.enabled[n] = true
		return abi.ReturnSuccess()
	case cmdDisableInterrupt:
		delete(f.enabled, n)
		return abi.ReturnSuccess()
	default:
		return abi.ReturnSuccessU32(uint32(f.levels[n]))
	}
}

// Enabled reports whether button n has its interrupt enabled.
func (f *Fake) Enabled(n int) bool {
	return f.enabled[n]
}

// Press sets button n to pressed and raises an event if enabled.
func (f *Fake) Press(k *kernel.Kernel, n int) {
	f.set(k, n, Pressed)
}

// Release sets button n to released and raises an event if enabled.
func (f *Fake) Release(k *kernel.Kernel, n int) {
	f.set(k, n, Released)
}

func (f *Fake) set(k *kernel.Kernel, n int, s State) {
	f.levels[n] = s
	if f.enabled[n] && k.Subscribed(DriverID, SubscribeCallback) {
		k.MarkReady(DriverID, SubscribeCallback, uint32(n), uint32(s), 0)
	}
}
