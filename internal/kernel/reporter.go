package kernel

import "fmt"

// Reporter receives protocol violations. Fatal must not return normally
// for the kernel to behave as specified; testing.TB satisfies Reporter and
// stops the test goroutine.
type Reporter interface {
	Helper()
	Fatal(args ...any)
}

// PanicReporter panics with the reported *ProtocolError. It is the default
// when no reporter is configured, and lets a runner recover violations.
type PanicReporter struct{}

func (PanicReporter) Helper() {}

func (PanicReporter) Fatal(args ...any) {
	if len(args) == 1 {
		if pe, ok := args[0].(*ProtocolError); ok {
			panic(pe)
		}
	}
	panic(fmt.Sprint(args...))
}
