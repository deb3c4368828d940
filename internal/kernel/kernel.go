package kernel

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fakekernel/internal/abi"
	"github.com/roach88/fakekernel/internal/expect"
	"github.com/roach88/fakekernel/internal/testutil"
	"github.com/roach88/fakekernel/internal/trace"
)

// Clock stamps trace events with logical sequence numbers.
type Clock interface {
	Next() int64
}

// ExitStatus records how the process exited.
type ExitStatus struct {
	Kind abi.ExitKind
	Code uint32
}

type bufferKey struct {
	driverID uint32
	bufferID uint32
}

// Kernel is the fake kernel. It implements abi.Syscalls.
type Kernel struct {
	expected *ExpectQueue
	upcalls  *registry
	drivers  map[uint32]Driver
	sharedRO map[bufferKey][]byte
	sharedRW map[bufferKey][]byte
	memory   MemoryLayout
	exit     *ExitStatus

	clock    Clock
	recorder *trace.Recorder
	reporter Reporter
	logger   *slog.Logger
}

var _ abi.Syscalls = (*Kernel)(nil)

// Option configures a Kernel.
type Option func(*Kernel)

// WithReporter routes protocol violations to r (typically the test's *testing.T).
func WithReporter(r Reporter) Option {
	return func(k *Kernel) {
		k.reporter = r
	}
}

// WithLogger sets the structured logger. Syscalls and upcalls are logged
// at Debug, violations at Error.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) {
		k.logger = l
	}
}

// WithClock sets the clock used to stamp trace events.
func WithClock(c Clock) Option {
	return func(k *Kernel) {
		k.clock = c
	}
}

// WithRecorder records the trace into r instead of a private recorder.
func WithRecorder(r *trace.Recorder) Option {
	return func(k *Kernel) {
		k.recorder = r
	}
}

// WithMemoryLayout sets the memory map memop answers from.
func WithMemoryLayout(m MemoryLayout) Option {
	return func(k *Kernel) {
		k.memory = m
	}
}

// WithDrivers registers fake drivers at construction.
func WithDrivers(drivers ...Driver) Option {
	return func(k *Kernel) {
		for _, d := range drivers {
			k.drivers[d.ID()] = d
		}
	}
}

// New creates a fake kernel with an empty expectation queue and no
// subscriptions.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		expected: NewExpectQueue(),
		upcalls:  newRegistry(),
		drivers:  make(map[uint32]Driver),
		sharedRO: make(map[bufferKey][]byte),
		sharedRW: make(map[bufferKey][]byte),
		memory:   DefaultMemoryLayout(),
		clock:    testutil.NewDeterministicClock(),
		recorder: trace.NewRecorder(),
		reporter: PanicReporter{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// AddExpected appends expectations to the tail of the queue, in order.
func (k *Kernel) AddExpected(es ...expect.Expectation) {
	for _, e := range es {
		k.expected.Push(e)
	}
}

// Remaining returns the expectations not yet consumed, head first.
func (k *Kernel) Remaining() []expect.Expectation {
	return k.expected.Items()
}

// Verify returns a *ProtocolError if any expectation was never consumed.
func (k *Kernel) Verify() error {
	remaining := k.expected.Items()
	if len(remaining) == 0 {
		return nil
	}
	s := make([]fmt.Stringer, len(remaining))
	for i, e := range remaining {
		s[i] = e
	}
	return newUnconsumedError(s)
}

// AssertDone reports a violation if any expectation was never consumed.
// Call it at the end of every test.
func (k *Kernel) AssertDone() {
	k.reporter.Helper()
	if err := k.Verify(); err != nil {
		k.fail(err.(*ProtocolError))
	}
}

// AddDriver registers a fake driver, replacing any with the same ID.
func (k *Kernel) AddDriver(d Driver) {
	k.drivers[d.ID()] = d
}

// RegisterUpcall subscribes upcall on behalf of the test, as if the driver
// had called subscribe. A nil upcall clears the slot.
func (k *Kernel) RegisterUpcall(driverID, subscribeID uint32, upcall abi.UpcallFunc, userdata uintptr) {
	k.upcalls.subscribe(slotKey{driverID, subscribeID}, upcall, userdata)
}

// Subscribed reports whether the slot currently has an upcall.
func (k *Kernel) Subscribed(driverID, subscribeID uint32) bool {
	return k.upcalls.subscribed(slotKey{driverID, subscribeID})
}

// MarkReady simulates an external event: the upcall subscribed on the slot
// becomes ready with the given arguments and will run on a later yield.
// Marking a slot with no subscription is a protocol violation.
func (k *Kernel) MarkReady(driverID, subscribeID uint32, arg0, arg1, arg2 uint32) {
	k.reporter.Helper()
	args := [3]uint32{arg0, arg1, arg2}
	if !k.upcalls.markReady(slotKey{driverID, subscribeID}, args) {
		k.fail(newNotSubscribedError(driverID, subscribeID))
		return
	}
	seq := k.clock.Next()
	k.recorder.Record(trace.Event{
		Seq:  seq,
		Type: trace.EventReady,
		Call: formatUpcall(driverID, subscribeID, args),
	})
	k.logger.Debug("upcall ready",
		"seq", seq,
		"driver_id", driverID,
		"subscribe_id", subscribeID,
		"args", args,
	)
}

// PendingUpcalls returns the number of ready, undelivered upcalls.
func (k *Kernel) PendingUpcalls() int {
	return k.upcalls.pending()
}

// SharedRO returns the buffer currently shared read-only with the driver slot.
func (k *Kernel) SharedRO(driverID, bufferID uint32) []byte {
	return k.sharedRO[bufferKey{driverID, bufferID}]
}

// SharedRW returns the buffer currently shared read-write with the driver slot.
func (k *Kernel) SharedRW(driverID, bufferID uint32) []byte {
	return k.sharedRW[bufferKey{driverID, bufferID}]
}

// Memory returns the current memory layout, including the program break.
func (k *Kernel) Memory() MemoryLayout {
	return k.memory
}

// ExitStatus returns how the process exited, if it has.
func (k *Kernel) ExitStatus() (ExitStatus, bool) {
	if k.exit == nil {
		return ExitStatus{}, false
	}
	return *k.exit, true
}

// Trace returns the events recorded so far.
func (k *Kernel) Trace() []trace.Event {
	return k.recorder.Events()
}

// fail records and reports a violation. With a conforming Reporter it
// does not return.
func (k *Kernel) fail(err *ProtocolError) {
	k.recorder.Record(trace.Event{
		Seq:    k.clock.Next(),
		Type:   trace.EventViolation,
		Detail: err.Error(),
	})
	k.logger.Error("protocol violation",
		"code", string(err.Code),
		"expected", err.Expected,
		"actual", err.Actual,
	)
	k.reporter.Helper()
	k.reporter.Fatal(err)
}

func formatUpcall(driverID, subscribeID uint32, args [3]uint32) string {
	return fmt.Sprintf("Upcall{driver_id: %d, subscribe_id: %d, args: [%d, %d, %d]}",
		driverID, subscribeID, args[0], args[1], args[2])
}
