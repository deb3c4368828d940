package kernel

import (
	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/expect"
	"github.com/roach88/fakekernel/internal/trace"
)

// begin records the call, pops the head expectation and validates it
// against actual. The returned index locates the call's trace event.
// ok is false only if a violation was reported to a Reporter that returned.
func (k *Kernel) begin(actual expect.Expectation) (want expect.Expectation, idx int, ok bool) {
	k.reporter.Helper()

	seq := k.clock.Next()
	idx = k.recorder.Record(trace.Event{
		Seq:     seq,
		Type:    trace.EventSyscall,
		Syscall: actual.Kind().String(),
		Call:    actual.String(),
	})
	k.logger.Debug("syscall",
		"seq", seq,
		"syscall", actual.Kind().String(),
		"call", actual.String(),
		"remaining", k.expected.Len(),
	)

	if k.exit != nil {
		k.fail(newAfterExitError(actual, *k.exit))
		return nil, idx, false
	}

	want, ok = k.expected.Pop()
	if !ok {
		k.fail(newExhaustedError(actual))
		return nil, idx, false
	}
	if !want.Matches(actual) {
		k.fail(newMismatchError(want, actual, want.Kind() == actual.Kind()))
		return nil, idx, false
	}
	return want, idx, true
}

// deliverOne runs the oldest ready upcall, if any.
func (k *Kernel) deliverOne() bool {
	p, ok := k.upcalls.popReady()
	if !ok {
		return false
	}
	seq := k.clock.Next()
	k.recorder.Record(trace.Event{
		Seq:  seq,
		Type: trace.EventUpcall,
		Call: formatUpcall(p.DriverID, p.SubscribeID, p.Args),
	})
	k.logger.Debug("upcall delivered",
		"seq", seq,
		"driver_id", p.DriverID,
		"subscribe_id", p.SubscribeID,
		"args", p.Args,
	)
	p.Upcall(p.Args[0], p.Args[1], p.Args[2], p.Userdata)
	return true
}

// YieldNoWait runs at most one ready upcall and never blocks. The return
// reflects whether an upcall ran unless the expectation overrides it.
func (k *Kernel) YieldNoWait() abi.YieldReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.YieldNoWait{})
	if !ok {
		return abi.NoUpcall
	}

	ret := abi.NoUpcall
	if k.deliverOne() {
		ret = abi.Upcall
	}
	if o := e.(expect.YieldNoWait).OverrideReturn; o != nil {
		ret = *o
	}
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

// YieldWait runs exactly one ready upcall. With nothing ready the call
// would block forever, so it is reported as a deadlock instead. A
// SkipUpcall expectation returns without touching the ready queue.
func (k *Kernel) YieldWait() abi.YieldReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.YieldWait{})
	if !ok {
		return abi.NoUpcall
	}

	want := e.(expect.YieldWait)
	if want.SkipUpcall {
		k.recorder.SetReturn(idx, abi.NoUpcall.String())
		return abi.NoUpcall
	}
	if !k.deliverOne() {
		k.fail(newDeadlockError(want))
		return abi.NoUpcall
	}
	k.recorder.SetReturn(idx, abi.Upcall.String())
	return abi.Upcall
}

// Command validates all four arguments. The registered fake driver (if
// any) runs first; an override then replaces its output. With neither,
// the command succeeds.
func (k *Kernel) Command(driverID, commandID, arg0, arg1 uint32) abi.CommandReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.Command{DriverID: driverID, CommandID: commandID, Arg0: arg0, Arg1: arg1})
	if !ok {
		return abi.ReturnFailure(abi.ErrFail)
	}

	ret := abi.ReturnSuccess()
	if d, found := k.drivers[driverID]; found {
		ret = d.Command(k, commandID, arg0, arg1)
	}
	if o := e.(expect.Command).OverrideReturn; o != nil {
		ret = *o
	}
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

// Subscribe installs (or with a nil upcall, clears) the slot's callback.
// A failure override rejects the subscription and leaves the slot as is.
func (k *Kernel) Subscribe(driverID, subscribeID uint32, upcall abi.UpcallFunc, userdata uintptr) abi.SubscribeReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.Subscribe{DriverID: driverID, SubscribeID: subscribeID})
	if !ok {
		return abi.SubscribeFailure(abi.ErrFail)
	}

	ret := abi.SubscribeSuccess()
	if o := e.(expect.Subscribe).OverrideReturn; o != nil {
		ret = *o
	}
	if ret.OK() {
		if dropped := k.upcalls.subscribe(slotKey{driverID, subscribeID}, upcall, userdata); dropped > 0 {
			k.logger.Debug("dropped pending upcalls",
				"driver_id", driverID,
				"subscribe_id", subscribeID,
				"dropped", dropped,
			)
		}
	}
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

// AllowRO shares buf read-only and hands back the previously shared buffer.
func (k *Kernel) AllowRO(driverID, bufferID uint32, buf []byte) abi.AllowReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.AllowRO{DriverID: driverID, BufferID: bufferID})
	if !ok {
		return abi.AllowFailure(abi.ErrFail)
	}
	ret := k.allow(k.sharedRO, bufferKey{driverID, bufferID}, buf, e.(expect.AllowRO).OverrideReturn)
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

// AllowRW shares buf read-write and hands back the previously shared buffer.
func (k *Kernel) AllowRW(driverID, bufferID uint32, buf []byte) abi.AllowReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.AllowRW{DriverID: driverID, BufferID: bufferID})
	if !ok {
		return abi.AllowFailure(abi.ErrFail)
	}
	ret := k.allow(k.sharedRW, bufferKey{driverID, bufferID}, buf, e.(expect.AllowRW).OverrideReturn)
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

func (k *Kernel) allow(shared map[bufferKey][]byte, key bufferKey, buf []byte, override *abi.AllowReturn) abi.AllowReturn {
	ret := abi.AllowSuccess(shared[key])
	if override != nil {
		ret = *override
	}
	if ret.OK() {
		if buf == nil {
			delete(shared, key)
		} else {
			shared[key] = buf
		}
	}
	return ret
}

// Memop answers from the kernel's memory layout unless overridden.
// An override leaves the layout untouched.
func (k *Kernel) Memop(op abi.MemopOp, arg uint32) abi.CommandReturn {
	k.reporter.Helper()
	e, idx, ok := k.begin(expect.Memop{Op: op, Arg: arg})
	if !ok {
		return abi.ReturnFailure(abi.ErrFail)
	}

	var ret abi.CommandReturn
	if o := e.(expect.Memop).OverrideReturn; o != nil {
		ret = *o
	} else {
		ret = k.memory.memop(op, arg)
	}
	k.recorder.SetReturn(idx, ret.String())
	return ret
}

// Exit records the exit status. Every later syscall is a violation.
func (k *Kernel) Exit(kind abi.ExitKind, code uint32) {
	k.reporter.Helper()
	if _, _, ok := k.begin(expect.Exit{ExitKind: kind, Code: code}); !ok {
		return
	}
	k.exit = &ExitStatus{Kind: kind, Code: code}
	k.logger.Info("process exited", "kind", kind.String(), "code", code)
}
