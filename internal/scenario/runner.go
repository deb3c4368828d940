package scenario

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/expect"
	"github.com/roach88/fakekernel/internal/kernel"
)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes kernel and step logs to logger.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// Run executes a scenario on a fresh kernel and returns the result.
//
// Protocol violations and step mismatches fail the result rather than
// returning an error; the first one stops the scenario. An error is
// returned only if the scenario cannot be set up.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("scenario", s.Name)

	expectations := make([]expect.Expectation, 0, len(s.Expect))
	for i, e := range s.Expect {
		x, err := e.Expectation()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: expect[%d]: %w", s.Name, i, err)
		}
		expectations = append(expectations, x)
	}

	k := kernel.New(kernel.WithLogger(logger))
	b := newBinding(s, k)
	k.AddExpected(expectations...)

	result := NewResult(s.Name)
	execute(s, k, b, result, logger)
	result.Trace = k.Trace()

	logger.Debug("scenario finished", "pass", result.Pass, "events", len(result.Trace))
	return result, nil
}

// execute runs the steps and then checks every expectation was consumed.
// Violations reported by the kernel arrive as panics and are recovered
// into the result.
func execute(s *Scenario, k *kernel.Kernel, b binding, result *Result, logger *slog.Logger) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if pe := kernel.AsProtocolError(v); pe != nil {
			result.AddError(pe.Error())
			return
		}
		result.AddError(fmt.Sprintf("panic: %v", v))
	}()

	for i, step := range s.Steps {
		logger.Debug("step", "index", i, "call", step.Call, "ready", step.Ready != nil)
		if err := runStep(k, b, i, step); err != nil {
			result.AddError(err.Error())
			return
		}
	}

	k.AssertDone()
}

func runStep(k *kernel.Kernel, b binding, i int, step Step) error {
	if r := step.Ready; r != nil {
		var args [3]uint32
		copy(args[:], r.Args)
		k.MarkReady(r.DriverID, r.SubscribeID, args[0], args[1], args[2])
		return nil
	}

	switch step.Call {
	case CallWait, CallPoll:
		before := b.eventCount()
		var ret abi.YieldReturn
		if step.Call == CallWait {
			ret = k.YieldWait()
		} else {
			ret = k.YieldNoWait()
		}
		if step.Want == nil {
			return nil
		}
		if w := step.Want.Upcall; w != nil && *w != (ret == abi.Upcall) {
			return &StepError{Index: i, Call: step.Call, Expected: upcallName(*w), Actual: ret.String()}
		}
		if step.Want.expectsEvent() && ret != abi.Upcall {
			return &StepError{Index: i, Call: step.Call, Expected: abi.Upcall.String(), Actual: ret.String()}
		}
		if expected, actual, ok := b.checkEvent(step.Want, before); !ok {
			return &StepError{Index: i, Call: step.Call, Expected: expected, Actual: actual}
		}
		return nil
	}

	err := b.call(step)
	if step.WantError != "" {
		targets, perr := parseWantError(step.WantError)
		if perr != nil {
			return perr
		}
		switch {
		case err == nil:
			return &StepError{Index: i, Call: step.Call, Expected: "error " + step.WantError, Actual: "no error"}
		case !matchesAny(err, targets):
			return &StepError{Index: i, Call: step.Call, Expected: "error " + step.WantError, Actual: err.Error()}
		}
		return nil
	}
	if err != nil {
		return &StepError{Index: i, Call: step.Call, Expected: "no error", Actual: err.Error()}
	}

	if step.Want != nil {
		if expected, actual, ok := b.check(step, step.Want); !ok {
			return &StepError{Index: i, Call: step.Call, Expected: expected, Actual: actual}
		}
	}
	return nil
}

func upcallName(upcall bool) string {
	if upcall {
		return abi.Upcall.String()
	}
	return abi.NoUpcall.String()
}
