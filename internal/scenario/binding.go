package scenario

import (
	"errors"
	"fmt"

	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/drivers/buttons"
	"github.com/roach88/fakekernel/internal/drivers/leds"
	"github.com/roach88/fakekernel/internal/kernel"
)

var errNotOpen = errors.New("driver not open")

// binding runs driver-specific calls against the kernel.
type binding interface {
	// call performs the step's operation and returns the driver's error.
	call(step Step) error

	// check compares observed driver state against want after a
	// successful call.
	check(step Step, want *Want) (expected, actual string, ok bool)

	// eventCount returns how many upcall events the driver has received.
	eventCount() int

	// checkEvent compares the event delivered after the driver had seen
	// since events. Older events never satisfy want.
	checkEvent(want *Want, since int) (expected, actual string, ok bool)
}

func newBinding(s *Scenario, k *kernel.Kernel) binding {
	switch s.Driver {
	case DriverLEDs:
		b := &ledsBinding{k: k}
		if s.FakeCount > 0 {
			b.fake = leds.NewFake(s.FakeCount)
			k.AddDriver(b.fake)
		}
		return b
	default:
		b := &buttonsBinding{k: k}
		if s.FakeCount > 0 {
			b.fake = buttons.NewFake(s.FakeCount)
			k.AddDriver(b.fake)
		}
		return b
	}
}

type buttonEvent struct {
	button int
	state  buttons.State
}

type buttonsBinding struct {
	k      *kernel.Kernel
	fake   *buttons.Fake
	drv    *buttons.Buttons
	events []buttonEvent
	read   buttons.State
}

func (b *buttonsBinding) call(step Step) error {
	if step.Call == CallOpen {
		drv, err := buttons.New(b.k, func(button int, state buttons.State) {
			b.events = append(b.events, buttonEvent{button, state})
		})
		if err != nil {
			return err
		}
		b.drv = drv
		return nil
	}

	switch step.Call {
	case CallPress:
		b.fake.Press(b.k, *step.Button)
		return nil
	case CallRelease:
		b.fake.Release(b.k, *step.Button)
		return nil
	}

	if b.drv == nil {
		return errNotOpen
	}
	switch step.Call {
	case CallCount:
		return nil
	case CallEnable:
		return b.drv.Enable(*step.Button)
	case CallDisable:
		return b.drv.Disable(*step.Button)
	case CallRead:
		s, err := b.drv.Read(*step.Button)
		b.read = s
		return err
	case CallClose:
		b.drv.Close()
		return nil
	}
	return fmt.Errorf("unsupported call %q", step.Call)
}

func (b *buttonsBinding) check(step Step, want *Want) (string, string, bool) {
	if want.Count != nil {
		if b.drv == nil {
			return fmt.Sprintf("count %d", *want.Count), "no open driver", false
		}
		if b.drv.Count() != *want.Count {
			return fmt.Sprintf("count %d", *want.Count), fmt.Sprintf("count %d", b.drv.Count()), false
		}
	}
	if want.State != "" && step.Call == CallRead {
		if b.read.String() != want.State {
			return "state " + want.State, "state " + b.read.String(), false
		}
	}
	return "", "", true
}

func (b *buttonsBinding) eventCount() int { return len(b.events) }

func (b *buttonsBinding) checkEvent(want *Want, since int) (string, string, bool) {
	if !want.expectsEvent() {
		return "", "", true
	}
	expected := describeEvent(want.Button, want.State)
	if len(b.events) <= since {
		return expected, "no button event", false
	}
	got := b.events[since]
	if want.Button != nil && *want.Button != got.button ||
		want.State != "" && want.State != got.state.String() {
		return expected, fmt.Sprintf("button %d %s", got.button, got.state), false
	}
	return "", "", true
}

func describeEvent(button *int, state string) string {
	switch {
	case button != nil && state != "":
		return fmt.Sprintf("button %d %s", *button, state)
	case button != nil:
		return fmt.Sprintf("button %d event", *button)
	default:
		return "button " + state
	}
}

type ledsBinding struct {
	k    *kernel.Kernel
	fake *leds.Fake
	drv  *leds.LEDs
}

func (l *ledsBinding) call(step Step) error {
	if step.Call == CallOpen {
		drv, err := leds.New(l.k)
		if err != nil {
			return err
		}
		l.drv = drv
		return nil
	}

	if l.drv == nil {
		return errNotOpen
	}
	switch step.Call {
	case CallCount:
		return nil
	case CallOn:
		return l.drv.On(*step.LED)
	case CallOff:
		return l.drv.Off(*step.LED)
	case CallToggle:
		return l.drv.Toggle(*step.LED)
	}
	return fmt.Errorf("unsupported call %q", step.Call)
}

func (l *ledsBinding) check(step Step, want *Want) (string, string, bool) {
	if want.Count != nil {
		if l.drv == nil {
			return fmt.Sprintf("count %d", *want.Count), "no open driver", false
		}
		if l.drv.Count() != *want.Count {
			return fmt.Sprintf("count %d", *want.Count), fmt.Sprintf("count %d", l.drv.Count()), false
		}
	}
	if want.Lit != nil && step.LED != nil {
		if got := l.fake.Lit(*step.LED); got != *want.Lit {
			return fmt.Sprintf("led %d lit=%t", *step.LED, *want.Lit), fmt.Sprintf("lit=%t", got), false
		}
	}
	return "", "", true
}

func (l *ledsBinding) eventCount() int { return 0 }

func (l *ledsBinding) checkEvent(want *Want, _ int) (string, string, bool) {
	if want.expectsEvent() {
		return describeEvent(want.Button, want.State), "leds driver has no events", false
	}
	return "", "", true
}

var namedErrors = map[string][]error{
	"not_supported":       {buttons.ErrNotSupported, leds.ErrNotSupported},
	"subscription_failed": {buttons.ErrSubscriptionFailed},
	"activation_failed":   {buttons.ErrActivationFailed},
}

// parseWantError resolves a want_error name to the errors it matches.
func parseWantError(name string) ([]error, error) {
	if errs, ok := namedErrors[name]; ok {
		return errs, nil
	}
	code, err := abi.ParseErrorCode(name)
	if err != nil {
		return nil, fmt.Errorf("want_error: unknown error %q", name)
	}
	return []error{code}, nil
}

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
