package scenario

import (
	"fmt"

	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/expect"
)

// Expectation converts the entry into a kernel expectation.
func (e ExpectStep) Expectation() (expect.Expectation, error) {
	var out []expect.Expectation
	var err error
	add := func(x expect.Expectation, xerr error) {
		if xerr != nil && err == nil {
			err = xerr
		}
		out = append(out, x)
	}

	if e.YieldNoWait != nil {
		add(e.YieldNoWait.expectation())
	}
	if e.YieldWait != nil {
		add(expect.YieldWait{SkipUpcall: e.YieldWait.SkipUpcall}, nil)
	}
	if e.Command != nil {
		add(e.Command.expectation())
	}
	if e.Subscribe != nil {
		add(e.Subscribe.expectation())
	}
	if e.AllowRO != nil {
		ret, xerr := e.AllowRO.Return.allowReturn()
		add(expect.AllowRO{DriverID: e.AllowRO.DriverID, BufferID: e.AllowRO.BufferID, OverrideReturn: ret}, xerr)
	}
	if e.AllowRW != nil {
		ret, xerr := e.AllowRW.Return.allowReturn()
		add(expect.AllowRW{DriverID: e.AllowRW.DriverID, BufferID: e.AllowRW.BufferID, OverrideReturn: ret}, xerr)
	}
	if e.Memop != nil {
		add(e.Memop.expectation())
	}
	if e.Exit != nil {
		kind, xerr := abi.ParseExitKind(e.Exit.Kind)
		add(expect.Exit{ExitKind: kind, Code: e.Exit.Code}, xerr)
	}

	switch {
	case len(out) == 0:
		return nil, fmt.Errorf("no system call given")
	case len(out) > 1:
		return nil, fmt.Errorf("exactly one system call per entry, got %d", len(out))
	case err != nil:
		return nil, err
	}
	return out[0], nil
}

func (y *YieldNoWaitSpec) expectation() (expect.Expectation, error) {
	e := expect.YieldNoWait{}
	switch y.Return {
	case "":
	case "upcall":
		e.OverrideReturn = expect.Ptr(abi.Upcall)
	case "no_upcall":
		e.OverrideReturn = expect.Ptr(abi.NoUpcall)
	default:
		return e, fmt.Errorf("yield_no_wait: unknown return %q", y.Return)
	}
	return e, nil
}

func (c *CommandSpec) expectation() (expect.Expectation, error) {
	e := expect.Command{
		DriverID:  c.DriverID,
		CommandID: c.CommandID,
		Arg0:      c.Argument0,
		Arg1:      c.Argument1,
	}
	if c.Return != nil {
		ret, err := c.Return.commandReturn()
		if err != nil {
			return e, fmt.Errorf("command: %w", err)
		}
		e.OverrideReturn = &ret
	}
	return e, nil
}

func (s *SubscribeSpec) expectation() (expect.Expectation, error) {
	e := expect.Subscribe{DriverID: s.DriverID, SubscribeID: s.SubscribeID}
	if s.Return != nil {
		code, err := s.Return.code()
		if err != nil {
			return e, fmt.Errorf("subscribe: %w", err)
		}
		e.OverrideReturn = expect.Ptr(abi.SubscribeFailure(code))
	}
	return e, nil
}

func (m *MemopSpec) expectation() (expect.Expectation, error) {
	op, err := abi.ParseMemopOp(m.Op)
	if err != nil {
		return nil, err
	}
	e := expect.Memop{Op: op, Arg: m.Argument}
	if m.Return != nil {
		ret, err := m.Return.commandReturn()
		if err != nil {
			return e, fmt.Errorf("memop: %w", err)
		}
		e.OverrideReturn = &ret
	}
	return e, nil
}

func (r *ReturnSpec) commandReturn() (abi.CommandReturn, error) {
	var set []abi.CommandReturn
	if r.Success {
		set = append(set, abi.ReturnSuccess())
	}
	if r.SuccessU32 != nil {
		set = append(set, abi.ReturnSuccessU32(*r.SuccessU32))
	}
	if r.SuccessU32U32 != nil {
		if len(r.SuccessU32U32) != 2 {
			return abi.CommandReturn{}, fmt.Errorf("success_u32_u32 needs 2 values, got %d", len(r.SuccessU32U32))
		}
		set = append(set, abi.ReturnSuccessU32U32(r.SuccessU32U32[0], r.SuccessU32U32[1]))
	}
	if r.SuccessU32U32U32 != nil {
		v := r.SuccessU32U32U32
		if len(v) != 3 {
			return abi.CommandReturn{}, fmt.Errorf("success_u32_u32_u32 needs 3 values, got %d", len(v))
		}
		set = append(set, abi.ReturnSuccessU32U32U32(v[0], v[1], v[2]))
	}
	if r.SuccessU64 != nil {
		set = append(set, abi.ReturnSuccessU64(*r.SuccessU64))
	}
	if r.Failure != "" {
		code, err := abi.ParseErrorCode(r.Failure)
		if err != nil {
			return abi.CommandReturn{}, err
		}
		set = append(set, abi.ReturnFailure(code))
	}

	if len(set) != 1 {
		return abi.CommandReturn{}, fmt.Errorf("return must set exactly one variant, got %d", len(set))
	}
	return set[0], nil
}

func (f *FailureOnlySpec) code() (abi.ErrorCode, error) {
	return abi.ParseErrorCode(f.Failure)
}

func (f *FailureOnlySpec) allowReturn() (*abi.AllowReturn, error) {
	if f == nil {
		return nil, nil
	}
	code, err := f.code()
	if err != nil {
		return nil, fmt.Errorf("allow: %w", err)
	}
	return expect.Ptr(abi.AllowFailure(code)), nil
}
