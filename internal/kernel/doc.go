// Package kernel implements a fake, expectation-driven system call kernel
// for unit-testing drivers.
//
// A Kernel satisfies abi.Syscalls. Tests seed it with the exact sequence of
// system calls the driver is expected to make, hand it to the driver, and
// control when subscribed upcalls become ready:
//
//	k := kernel.New(kernel.WithReporter(t))
//	k.AddExpected(
//	    expect.Command{DriverID: 3, CommandID: 1},
//	    expect.YieldWait{},
//	)
//	k.RegisterUpcall(3, 0, callback, 0)
//	k.MarkReady(3, 0, 0, 1, 0)
//	// ... drive the code under test ...
//	k.AssertDone()
//
// # Ordering
//
// Expectations are consumed strictly first-in first-out across all syscall
// classes: the driver's Nth syscall must match the Nth expectation. Ready
// upcalls are delivered oldest-ready-first, at most one per yield.
//
// # Failures
//
// Any protocol violation (wrong syscall class, wrong arguments, empty queue,
// yield-wait with nothing to deliver, syscall after exit) is reported through
// the Reporter and is fatal. testing.TB satisfies Reporter; without one the
// kernel panics with a *ProtocolError.
//
// Injected kernel errors are not violations. An expectation's OverrideReturn
// is handed to the driver exactly as a real kernel error would be, so the
// driver's error paths run and can be asserted on.
//
// # Concurrency
//
// A Kernel is single-threaded. "Blocking" yields inspect the upcall queue
// synchronously; nothing ever suspends. A Kernel must not be shared between
// goroutines.
package kernel
