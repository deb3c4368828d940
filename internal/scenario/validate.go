package scenario

import (
	"fmt"
	"slices"

	"github.com/roach88/fakekernel/internal/drivers/buttons"
)

// Driver names accepted in the driver field.
const (
	DriverButtons = "buttons"
	DriverLEDs    = "leds"
)

// Step call names.
const (
	CallOpen    = "open"
	CallCount   = "count"
	CallEnable  = "enable"
	CallDisable = "disable"
	CallRead    = "read"
	CallClose   = "close"
	CallPress   = "press"
	CallRelease = "release"
	CallOn      = "on"
	CallOff     = "off"
	CallToggle  = "toggle"
	CallWait    = "wait"
	CallPoll    = "poll"
)

var driverCalls = map[string]map[string]bool{
	DriverButtons: {
		CallOpen: true, CallCount: true, CallEnable: true, CallDisable: true,
		CallRead: true, CallClose: true, CallPress: true, CallRelease: true,
		CallWait: true, CallPoll: true,
	},
	DriverLEDs: {
		CallOpen: true, CallCount: true, CallOn: true, CallOff: true,
		CallToggle: true, CallWait: true, CallPoll: true,
	},
}

// wantFields lists the want fields each call can check, per driver.
var wantFields = map[string]map[string][]string{
	DriverButtons: {
		CallOpen:  {"count"},
		CallCount: {"count"},
		CallRead:  {"state"},
		CallWait:  {"button", "state", "upcall"},
		CallPoll:  {"button", "state", "upcall"},
	},
	DriverLEDs: {
		CallOpen:   {"count"},
		CallCount:  {"count"},
		CallOn:     {"lit"},
		CallOff:    {"lit"},
		CallToggle: {"lit"},
		CallWait:   {"upcall"},
		CallPoll:   {"upcall"},
	},
}

// validateScenario checks that required fields are present and that every
// expectation and step is well-formed for the chosen driver.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	calls, ok := driverCalls[s.Driver]
	if !ok {
		return fmt.Errorf("unknown driver %q (want %q or %q)", s.Driver, DriverButtons, DriverLEDs)
	}

	if s.FakeCount < 0 {
		return fmt.Errorf("fake_count must be non-negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, e := range s.Expect {
		if _, err := e.Expectation(); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(s, calls, step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(s *Scenario, calls map[string]bool, step Step) error {
	if step.Ready != nil {
		if step.Call != "" {
			return fmt.Errorf("call and ready are mutually exclusive")
		}
		if len(step.Ready.Args) > 3 {
			return fmt.Errorf("ready takes at most 3 args, got %d", len(step.Ready.Args))
		}
		if step.Want != nil || step.WantError != "" {
			return fmt.Errorf("ready does not take want or want_error")
		}
		return nil
	}

	if step.Call == "" {
		return fmt.Errorf("call or ready is required")
	}
	if !calls[step.Call] {
		return fmt.Errorf("unknown call %q for driver %s", step.Call, s.Driver)
	}

	switch step.Call {
	case CallEnable, CallDisable, CallRead, CallPress, CallRelease:
		if step.Button == nil {
			return fmt.Errorf("%s: button is required", step.Call)
		}
	case CallOn, CallOff, CallToggle:
		if step.LED == nil {
			return fmt.Errorf("%s: led is required", step.Call)
		}
	}

	switch step.Call {
	case CallPress, CallRelease:
		if s.FakeCount == 0 {
			return fmt.Errorf("%s: requires fake_count", step.Call)
		}
	}

	if step.Want != nil {
		if step.WantError != "" {
			return fmt.Errorf("want and want_error are mutually exclusive")
		}
		allowed := wantFields[s.Driver][step.Call]
		for _, f := range step.Want.fields() {
			if !slices.Contains(allowed, f) {
				return fmt.Errorf("%s: want.%s does not apply", step.Call, f)
			}
		}
		if u := step.Want.Upcall; u != nil && !*u && step.Want.expectsEvent() {
			return fmt.Errorf("%s: want.upcall false contradicts want.button/want.state", step.Call)
		}
		if step.Want.State != "" {
			if _, err := buttons.ParseState(step.Want.State); err != nil {
				return err
			}
		}
		if step.Want.Lit != nil && s.FakeCount == 0 {
			return fmt.Errorf("want.lit requires fake_count")
		}
	}

	if step.WantError != "" {
		if _, err := parseWantError(step.WantError); err != nil {
			return err
		}
	}

	return nil
}
