// Package expect describes the system calls a test expects a driver to make.
//
// Each Expectation names one syscall class and carries the arguments the real
// call must match, plus an optional return override. Unit tests push
// expectations onto the fake kernel's queue; the kernel consumes them strictly
// in order and fails the test on the first mismatch.
//
// Override values are the error-injection mechanism: an expectation such as
//
//	expect.Command{
//	    DriverID: 3, CommandID: 1,
//	    OverrideReturn: expect.Ptr(abi.ReturnFailure(abi.ErrNoMem)),
//	}
//
// makes the driver observe NOMEM without any fake driver having to produce it.
package expect
