package expect

import (
	"fmt"
	"strings"

	"github.com/roach88/fakekernel/internal/abi"
)

// Kind identifies a syscall class.
type Kind int

const (
	KindYieldNoWait Kind = iota + 1
	KindYieldWait
	KindSubscribe
	KindCommand
	KindAllowRW
	KindAllowRO
	KindMemop
	KindExit
)

var kindNames = map[Kind]string{
	KindYieldNoWait: "yield-no-wait",
	KindYieldWait:   "yield-wait",
	KindSubscribe:   "subscribe",
	KindCommand:     "command",
	KindAllowRW:     "allow-rw",
	KindAllowRO:     "allow-ro",
	KindMemop:       "memop",
	KindExit:        "exit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a syscall class name back to its Kind. Both the dashed
// form ("yield-wait") and the underscore form ("yield_wait") are accepted.
func ParseKind(name string) (Kind, error) {
	name = strings.ReplaceAll(name, "_", "-")
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown syscall kind %q", name)
}

// Expectation is one anticipated system call.
//
// Matches reports whether actual (an Expectation of the same shape built
// from the real call's arguments) satisfies the receiver's match keys.
// Override fields never take part in matching.
type Expectation interface {
	Kind() Kind
	Matches(actual Expectation) bool
	String() string

	// sealed restricts implementations to this package.
	sealed()
}

// Ptr returns a pointer to v. Used to build override values inline.
func Ptr[T any](v T) *T {
	return &v
}

// YieldNoWait expects a yield-no-wait call.
type YieldNoWait struct {
	// If set, yield-no-wait returns this value verbatim. Otherwise the
	// return reflects whether an upcall was actually run.
	OverrideReturn *abi.YieldReturn
}

// YieldWait expects a yield-wait call.
type YieldWait struct {
	// If true, no queued upcall is run even when one is ready.
	SkipUpcall bool
}

// Subscribe expects a subscribe call for DriverID/SubscribeID.
type Subscribe struct {
	DriverID    uint32
	SubscribeID uint32

	// A failure override rejects the subscription without registering
	// the upcall.
	OverrideReturn *abi.SubscribeReturn
}

// Command expects a command call with exactly these four arguments.
type Command struct {
	DriverID  uint32
	CommandID uint32
	Arg0      uint32
	Arg1      uint32

	// If set, replaces whatever the fake driver (or the default) would
	// have returned.
	OverrideReturn *abi.CommandReturn
}

// AllowRW expects a read-write allow of BufferID on DriverID.
type AllowRW struct {
	DriverID       uint32
	BufferID       uint32
	OverrideReturn *abi.AllowReturn
}

// AllowRO expects a read-only allow of BufferID on DriverID.
type AllowRO struct {
	DriverID       uint32
	BufferID       uint32
	OverrideReturn *abi.AllowReturn
}

// Memop expects a memop call.
type Memop struct {
	Op             abi.MemopOp
	Arg            uint32
	OverrideReturn *abi.CommandReturn
}

// Exit expects an exit call. Exit has no return value to override.
type Exit struct {
	ExitKind abi.ExitKind
	Code     uint32
}

func (YieldNoWait) Kind() Kind { return KindYieldNoWait }
func (YieldWait) Kind() Kind   { return KindYieldWait }
func (Subscribe) Kind() Kind   { return KindSubscribe }
func (Command) Kind() Kind     { return KindCommand }
func (AllowRW) Kind() Kind     { return KindAllowRW }
func (AllowRO) Kind() Kind     { return KindAllowRO }
func (Memop) Kind() Kind       { return KindMemop }
func (Exit) Kind() Kind        { return KindExit }

func (YieldNoWait) sealed() {}
func (YieldWait) sealed()   {}
func (Subscribe) sealed()   {}
func (Command) sealed()     {}
func (AllowRW) sealed()     {}
func (AllowRO) sealed()     {}
func (Memop) sealed()       {}
func (Exit) sealed()        {}

// Yields have no arguments; kind equality is the whole match.
func (e YieldNoWait) Matches(actual Expectation) bool {
	_, ok := actual.(YieldNoWait)
	return ok
}

func (e YieldWait) Matches(actual Expectation) bool {
	_, ok := actual.(YieldWait)
	return ok
}

func (e Subscribe) Matches(actual Expectation) bool {
	a, ok := actual.(Subscribe)
	return ok && a.DriverID == e.DriverID && a.SubscribeID == e.SubscribeID
}

func (e Command) Matches(actual Expectation) bool {
	a, ok := actual.(Command)
	return ok &&
		a.DriverID == e.DriverID &&
		a.CommandID == e.CommandID &&
		a.Arg0 == e.Arg0 &&
		a.Arg1 == e.Arg1
}

func (e AllowRW) Matches(actual Expectation) bool {
	a, ok := actual.(AllowRW)
	return ok && a.DriverID == e.DriverID && a.BufferID == e.BufferID
}

func (e AllowRO) Matches(actual Expectation) bool {
	a, ok := actual.(AllowRO)
	return ok && a.DriverID == e.DriverID && a.BufferID == e.BufferID
}

func (e Memop) Matches(actual Expectation) bool {
	a, ok := actual.(Memop)
	return ok && a.Op == e.Op && a.Arg == e.Arg
}

func (e Exit) Matches(actual Expectation) bool {
	a, ok := actual.(Exit)
	return ok && a.ExitKind == e.ExitKind && a.Code == e.Code
}

func (e YieldNoWait) String() string {
	if e.OverrideReturn != nil {
		return fmt.Sprintf("YieldNoWait{override_return: %s}", *e.OverrideReturn)
	}
	return "YieldNoWait{}"
}

// String omits skip_upcall when false, which is also how an actual
// yield-wait call renders: the call itself carries no arguments.
func (e YieldWait) String() string {
	if e.SkipUpcall {
		return "YieldWait{skip_upcall: true}"
	}
	return "YieldWait{}"
}

func (e Subscribe) String() string {
	s := fmt.Sprintf("Subscribe{driver_id: %d, subscribe_id: %d", e.DriverID, e.SubscribeID)
	if e.OverrideReturn != nil {
		s += fmt.Sprintf(", override_return: %s", *e.OverrideReturn)
	}
	return s + "}"
}

func (e Command) String() string {
	s := fmt.Sprintf("Command{driver_id: %d, command_id: %d, argument0: %d, argument1: %d",
		e.DriverID, e.CommandID, e.Arg0, e.Arg1)
	if e.OverrideReturn != nil {
		s += fmt.Sprintf(", override_return: %s", *e.OverrideReturn)
	}
	return s + "}"
}

func (e AllowRW) String() string {
	return formatAllow("AllowRW", e.DriverID, e.BufferID, e.OverrideReturn)
}

func (e AllowRO) String() string {
	return formatAllow("AllowRO", e.DriverID, e.BufferID, e.OverrideReturn)
}

func formatAllow(name string, driverID, bufferID uint32, override *abi.AllowReturn) string {
	s := fmt.Sprintf("%s{driver_id: %d, buffer_id: %d", name, driverID, bufferID)
	if override != nil {
		s += fmt.Sprintf(", override_return: %s", *override)
	}
	return s + "}"
}

func (e Memop) String() string {
	s := fmt.Sprintf("Memop{op: %s, argument: %d", e.Op, e.Arg)
	if e.OverrideReturn != nil {
		s += fmt.Sprintf(", override_return: %s", *e.OverrideReturn)
	}
	return s + "}"
}

func (e Exit) String() string {
	return fmt.Sprintf("Exit{kind: %s, code: %d}", e.ExitKind, e.Code)
}
