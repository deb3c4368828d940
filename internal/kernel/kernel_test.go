package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/expect"
	"github.com/roach88/fakekernel/internal/trace"
)

func TestKernel_FIFOConsumption(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(
		expect.Command{DriverID: 3, CommandID: 0},
		expect.Command{DriverID: 3, CommandID: 1, Arg0: 0},
		expect.Command{DriverID: 3, CommandID: 1, Arg0: 1},
	)

	k.Command(3, 0, 0, 0)
	k.Command(3, 1, 0, 0)
	k.Command(3, 1, 1, 0)

	assert.Empty(t, k.Remaining())
	assert.NoError(t, k.Verify())
	k.AssertDone()
}

func TestKernel_UnderConsumptionDetected(t *testing.T) {
	k := New()
	k.AddExpected(
		expect.Command{DriverID: 3, CommandID: 0},
		expect.YieldWait{},
	)
	k.Command(3, 0, 0, 0)

	require.Equal(t, []expect.Expectation{expect.YieldWait{}}, k.Remaining())

	err := k.Verify()
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))

	pe := requireViolation(t, ErrCodeUnconsumed, k.AssertDone)
	assert.Contains(t, pe.Message, "YieldWait{}")
}

func TestKernel_OverConsumptionFails(t *testing.T) {
	k := New()
	k.AddExpected(expect.Command{DriverID: 3})
	k.Command(3, 0, 0, 0)

	pe := requireViolation(t, ErrCodeQueueExhausted, func() {
		k.Command(3, 0, 0, 0)
	})
	assert.Equal(t, "Command{driver_id: 3, command_id: 0, argument0: 0, argument1: 0}", pe.Actual)
}

func TestKernel_ArgumentExactness(t *testing.T) {
	k := New()
	k.AddExpected(expect.Command{DriverID: 3, CommandID: 1, Arg0: 2, Arg1: 0})

	pe := requireViolation(t, ErrCodeArgumentMismatch, func() {
		k.Command(3, 1, 3, 0)
	})
	assert.Equal(t, "Command{driver_id: 3, command_id: 1, argument0: 2, argument1: 0}", pe.Expected)
	assert.Equal(t, "Command{driver_id: 3, command_id: 1, argument0: 3, argument1: 0}", pe.Actual)
	assert.Contains(t, pe.Error(), "expected system call Command{driver_id: 3, command_id: 1, argument0: 2, argument1: 0}")
	assert.Contains(t, pe.Error(), "but Command{driver_id: 3, command_id: 1, argument0: 3, argument1: 0} was called instead")
}

func TestKernel_ArgumentExactMatchSucceeds(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(expect.Command{DriverID: 3, CommandID: 1, Arg0: 2, Arg1: 0})

	ret := k.Command(3, 1, 2, 0)
	assert.Equal(t, abi.ReturnSuccess(), ret)
	k.AssertDone()
}

func TestKernel_WrongSyscallKind(t *testing.T) {
	k := New()
	k.AddExpected(expect.Command{DriverID: 3})

	pe := requireViolation(t, ErrCodeWrongSyscall, func() {
		k.YieldWait()
	})
	assert.Equal(t, "YieldWait{}", pe.Actual)
}

func TestKernel_CommandOverride(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(expect.Command{
		DriverID:       3,
		CommandID:      1,
		OverrideReturn: expect.Ptr(abi.ReturnFailure(abi.ErrNoMem)),
	})

	ret := k.Command(3, 1, 0, 0)
	code, ok := ret.Err()
	require.True(t, ok)
	assert.Equal(t, abi.ErrNoMem, code)
	k.AssertDone()
}

func TestKernel_CommandFakeDriver(t *testing.T) {
	var seen []uint32
	counter := DriverFunc{
		DriverID: 7,
		Func: func(k *Kernel, commandID, arg0, arg1 uint32) abi.CommandReturn {
			seen = append(seen, commandID)
			return abi.ReturnSuccessU32(arg0 + arg1)
		},
	}
	k := New(WithReporter(t), WithDrivers(counter))
	k.AddExpected(
		expect.Command{DriverID: 7, CommandID: 1, Arg0: 2, Arg1: 3},
		expect.Command{DriverID: 7, CommandID: 2, OverrideReturn: expect.Ptr(abi.ReturnFailure(abi.ErrBusy))},
		expect.Command{DriverID: 8},
	)

	assert.Equal(t, abi.ReturnSuccessU32(5), k.Command(7, 1, 2, 3))
	assert.Equal(t, abi.ReturnFailure(abi.ErrBusy), k.Command(7, 2, 0, 0), "override replaces driver output")
	assert.Equal(t, abi.ReturnSuccess(), k.Command(8, 0, 0, 0), "no driver means default success")

	assert.Equal(t, []uint32{1, 2}, seen, "driver runs even when its output is overridden")
	k.AssertDone()
}

func TestKernel_YieldNoWait(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, log.fn, 42)
	k.AddExpected(expect.YieldNoWait{}, expect.YieldNoWait{})

	assert.Equal(t, abi.NoUpcall, k.YieldNoWait(), "nothing ready")

	k.MarkReady(3, 0, 1, 2, 3)
	assert.Equal(t, abi.Upcall, k.YieldNoWait())
	assert.Equal(t, [][4]uint64{{1, 2, 3, 42}}, log.calls)
	k.AssertDone()
}

func TestKernel_YieldNoWaitOverridePrecedence(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, log.fn, 0)
	k.MarkReady(3, 0, 0, 1, 0)
	k.AddExpected(
		expect.YieldNoWait{OverrideReturn: expect.Ptr(abi.NoUpcall)},
		expect.YieldNoWait{OverrideReturn: expect.Ptr(abi.Upcall)},
	)

	assert.Equal(t, abi.NoUpcall, k.YieldNoWait(), "override wins even though an upcall ran")
	assert.Len(t, log.calls, 1)

	assert.Equal(t, abi.Upcall, k.YieldNoWait(), "override wins even though nothing ran")
	assert.Len(t, log.calls, 1)
	k.AssertDone()
}

func TestKernel_YieldWaitDeliversExactlyOne(t *testing.T) {
	log := &upcallLog{}
	k := New()
	k.RegisterUpcall(3, 0, log.fn, 0)
	k.MarkReady(3, 0, 0, 1, 0)
	k.AddExpected(expect.YieldWait{}, expect.YieldWait{})

	assert.Equal(t, abi.Upcall, k.YieldWait())
	assert.Len(t, log.calls, 1)
	assert.Equal(t, 0, k.PendingUpcalls())

	pe := requireViolation(t, ErrCodeDeadlock, func() {
		k.YieldWait()
	})
	assert.Contains(t, pe.Message, "no upcall is ready")
	assert.Len(t, log.calls, 1)
}

func TestKernel_YieldWaitSkipUpcall(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, log.fn, 0)
	k.MarkReady(3, 0, 0, 1, 0)
	k.AddExpected(expect.YieldWait{SkipUpcall: true}, expect.YieldWait{})

	assert.Equal(t, abi.NoUpcall, k.YieldWait())
	assert.Empty(t, log.calls, "skip_upcall must not run the callback")
	assert.Equal(t, 1, k.PendingUpcalls(), "upcall stays ready")

	assert.Equal(t, abi.Upcall, k.YieldWait())
	assert.Len(t, log.calls, 1)
	k.AssertDone()
}

func TestKernel_YieldWaitSkipWithNothingReady(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(expect.YieldWait{SkipUpcall: true})

	assert.Equal(t, abi.NoUpcall, k.YieldWait(), "skipping never deadlocks")
	k.AssertDone()

	events := k.Trace()
	require.Len(t, events, 1)
	assert.Equal(t, "YieldWait{}", events[0].Call, "the call itself has no skip argument")
}

func TestKernel_UpcallsOldestReadyFirst(t *testing.T) {
	var order []uint32
	record := func(arg0, _, _ uint32, _ uintptr) { order = append(order, arg0) }

	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, record, 0)
	k.RegisterUpcall(4, 1, record, 0)
	k.MarkReady(4, 1, 10, 0, 0)
	k.MarkReady(3, 0, 20, 0, 0)
	k.MarkReady(4, 1, 30, 0, 0)
	k.AddExpected(expect.YieldWait{}, expect.YieldNoWait{}, expect.YieldWait{})

	k.YieldWait()
	k.YieldNoWait()
	k.YieldWait()

	assert.Equal(t, []uint32{10, 20, 30}, order)
	k.AssertDone()
}

func TestKernel_SubscribeRegistersUpcall(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.AddExpected(expect.Subscribe{DriverID: 3, SubscribeID: 0}, expect.YieldWait{})

	ret := k.Subscribe(3, 0, log.fn, 9)
	require.True(t, ret.OK())
	assert.True(t, k.Subscribed(3, 0))

	k.MarkReady(3, 0, 0, 1, 0)
	k.YieldWait()
	assert.Equal(t, [][4]uint64{{0, 1, 0, 9}}, log.calls)
	k.AssertDone()
}

func TestKernel_SubscribeFailureOverride(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.AddExpected(expect.Subscribe{
		DriverID:       3,
		OverrideReturn: expect.Ptr(abi.SubscribeFailure(abi.ErrNoMem)),
	})

	ret := k.Subscribe(3, 0, log.fn, 0)
	assert.Equal(t, abi.ErrNoMem, ret.Err)
	assert.False(t, k.Subscribed(3, 0), "rejected subscription must not register")
	k.AssertDone()
}

func TestKernel_UnsubscribeDropsPendingUpcalls(t *testing.T) {
	log := &upcallLog{}
	k := New(WithReporter(t))
	k.AddExpected(
		expect.Subscribe{DriverID: 3},
		expect.Subscribe{DriverID: 3},
		expect.YieldNoWait{},
	)

	k.Subscribe(3, 0, log.fn, 0)
	k.MarkReady(3, 0, 0, 1, 0)
	require.Equal(t, 1, k.PendingUpcalls())

	k.Subscribe(3, 0, nil, 0)
	assert.False(t, k.Subscribed(3, 0))
	assert.Equal(t, 0, k.PendingUpcalls())

	assert.Equal(t, abi.NoUpcall, k.YieldNoWait())
	assert.Empty(t, log.calls, "unsubscribed callback must never run")
	k.AssertDone()
}

func TestKernel_ResubscribeDropsOnlyThatSlot(t *testing.T) {
	oldLog, newLog, otherLog := &upcallLog{}, &upcallLog{}, &upcallLog{}
	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, oldLog.fn, 0)
	k.RegisterUpcall(3, 1, otherLog.fn, 0)
	k.MarkReady(3, 0, 1, 0, 0)
	k.MarkReady(3, 1, 2, 0, 0)

	k.AddExpected(expect.Subscribe{DriverID: 3, SubscribeID: 0}, expect.YieldWait{})
	k.Subscribe(3, 0, newLog.fn, 0)
	assert.Equal(t, 1, k.PendingUpcalls())

	k.YieldWait()
	assert.Empty(t, oldLog.calls)
	assert.Empty(t, newLog.calls)
	assert.Len(t, otherLog.calls, 1)
	k.AssertDone()
}

func TestKernel_MarkReadyWithoutSubscription(t *testing.T) {
	k := New()
	pe := requireViolation(t, ErrCodeNotSubscribed, func() {
		k.MarkReady(3, 0, 0, 1, 0)
	})
	assert.Contains(t, pe.Message, "driver 3 slot 0")
}

func TestKernel_Allow(t *testing.T) {
	k := New(WithReporter(t))
	first := []byte("first")
	second := []byte("second")
	k.AddExpected(
		expect.AllowRW{DriverID: 1, BufferID: 0},
		expect.AllowRW{DriverID: 1, BufferID: 0},
		expect.AllowRO{DriverID: 1, BufferID: 0},
		expect.AllowRW{DriverID: 1, BufferID: 0},
	)

	ret := k.AllowRW(1, 0, first)
	require.True(t, ret.OK())
	assert.Nil(t, ret.Previous)

	ret = k.AllowRW(1, 0, second)
	require.True(t, ret.OK())
	assert.Equal(t, first, ret.Previous)
	assert.Equal(t, second, k.SharedRW(1, 0))

	ret = k.AllowRO(1, 0, first)
	require.True(t, ret.OK())
	assert.Nil(t, ret.Previous, "read-only and read-write slots are separate")
	assert.Equal(t, first, k.SharedRO(1, 0))

	ret = k.AllowRW(1, 0, nil)
	require.True(t, ret.OK())
	assert.Equal(t, second, ret.Previous)
	assert.Nil(t, k.SharedRW(1, 0), "nil buffer unshares")
	k.AssertDone()
}

func TestKernel_AllowFailureOverride(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(expect.AllowRO{
		DriverID:       1,
		BufferID:       2,
		OverrideReturn: expect.Ptr(abi.AllowFailure(abi.ErrInvalid)),
	})

	ret := k.AllowRO(1, 2, []byte("x"))
	assert.Equal(t, abi.ErrInvalid, ret.Err)
	assert.Nil(t, k.SharedRO(1, 2))
	k.AssertDone()
}

func TestKernel_Memop(t *testing.T) {
	layout := DefaultMemoryLayout()
	k := New(WithReporter(t), WithMemoryLayout(layout))
	k.AddExpected(
		expect.Memop{Op: abi.MemopMemoryStart},
		expect.Memop{Op: abi.MemopSbrk, Arg: 0x100},
		expect.Memop{Op: abi.MemopBrk, Arg: 0x1000_0000},
		expect.Memop{Op: abi.MemopSbrk, Arg: 0x10, OverrideReturn: expect.Ptr(abi.ReturnFailure(abi.ErrNoMem))},
		expect.Memop{Op: abi.MemopOp(99)},
	)

	assert.Equal(t, abi.ReturnSuccessU32(layout.MemoryStart), k.Memop(abi.MemopMemoryStart, 0))

	assert.Equal(t, abi.ReturnSuccessU32(layout.Break), k.Memop(abi.MemopSbrk, 0x100), "sbrk returns the old break")
	assert.Equal(t, layout.Break+0x100, k.Memory().Break)

	assert.Equal(t, abi.ReturnFailure(abi.ErrNoMem), k.Memop(abi.MemopBrk, 0x1000_0000), "break outside RAM")

	assert.Equal(t, abi.ReturnFailure(abi.ErrNoMem), k.Memop(abi.MemopSbrk, 0x10))
	assert.Equal(t, layout.Break+0x100, k.Memory().Break, "override leaves the layout untouched")

	assert.Equal(t, abi.ReturnFailure(abi.ErrNoSupport), k.Memop(abi.MemopOp(99), 0))
	k.AssertDone()
}

func TestKernel_SbrkNegative(t *testing.T) {
	k := New(WithReporter(t))
	k.AddExpected(expect.Memop{Op: abi.MemopSbrk, Arg: uint32(0xFFFF_FF00)})

	before := k.Memory().Break
	k.Memop(abi.MemopSbrk, uint32(0xFFFF_FF00))
	assert.Equal(t, before-0x100, k.Memory().Break)
}

func TestKernel_Exit(t *testing.T) {
	k := New()
	k.AddExpected(expect.Exit{ExitKind: abi.ExitTerminate, Code: 3}, expect.Command{DriverID: 1})

	k.Exit(abi.ExitTerminate, 3)
	status, ok := k.ExitStatus()
	require.True(t, ok)
	assert.Equal(t, ExitStatus{Kind: abi.ExitTerminate, Code: 3}, status)

	pe := requireViolation(t, ErrCodeAfterExit, func() {
		k.Command(1, 0, 0, 0)
	})
	assert.Contains(t, pe.Message, "after exit (terminate, code 3)")
}

func TestKernel_ExitCodeMismatch(t *testing.T) {
	k := New()
	k.AddExpected(expect.Exit{ExitKind: abi.ExitRestart})

	requireViolation(t, ErrCodeArgumentMismatch, func() {
		k.Exit(abi.ExitTerminate, 0)
	})
	_, exited := k.ExitStatus()
	assert.False(t, exited)
}

func TestKernel_ReturningReporter(t *testing.T) {
	r := &recordingReporter{}
	k := New(WithReporter(r))

	ret := k.Command(3, 0, 0, 0)
	assert.Equal(t, abi.ReturnFailure(abi.ErrFail), ret)
	require.Len(t, r.reports, 1)
	assert.Contains(t, r.reports[0], "QUEUE_EXHAUSTED")
}

func TestKernel_TraceOrdersUpcallsAfterTheirYield(t *testing.T) {
	k := New(WithReporter(t))
	k.RegisterUpcall(3, 0, func(uint32, uint32, uint32, uintptr) {}, 0)
	k.MarkReady(3, 0, 0, 1, 0)
	k.AddExpected(expect.YieldWait{})
	k.YieldWait()

	events := k.Trace()
	require.Len(t, events, 3)

	assert.Equal(t, trace.EventReady, events[0].Type)
	assert.Equal(t, trace.EventSyscall, events[1].Type)
	assert.Equal(t, "yield-wait", events[1].Syscall)
	assert.Equal(t, "Upcall", events[1].Return)
	assert.Equal(t, trace.EventUpcall, events[2].Type)
	assert.Equal(t, "Upcall{driver_id: 3, subscribe_id: 0, args: [0, 1, 0]}", events[2].Call)

	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestKernel_TraceRecordsViolations(t *testing.T) {
	k := New()
	requireViolation(t, ErrCodeQueueExhausted, func() {
		k.YieldNoWait()
	})

	violations := trace.Filter(k.Trace(), trace.EventViolation)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Detail, "QUEUE_EXHAUSTED")
}

func TestKernel_SharedRecorder(t *testing.T) {
	rec := trace.NewRecorder()
	k := New(WithReporter(t), WithRecorder(rec))
	k.AddExpected(expect.Command{DriverID: 1})
	k.Command(1, 0, 0, 0)

	assert.Equal(t, 1, rec.Len())
}
