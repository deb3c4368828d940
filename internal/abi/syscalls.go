package abi

import "fmt"

// YieldReturn reports whether a yield ran an upcall.
type YieldReturn uint8

const (
	NoUpcall YieldReturn = 0
	Upcall   YieldReturn = 1
)

func (y YieldReturn) String() string {
	switch y {
	case NoUpcall:
		return "NoUpcall"
	case Upcall:
		return "Upcall"
	default:
		return fmt.Sprintf("YieldReturn(%d)", uint8(y))
	}
}

// SubscribeReturn is the result of a subscribe call. A zero Err is success.
type SubscribeReturn struct {
	Err ErrorCode
}

// SubscribeSuccess is the successful SubscribeReturn.
func SubscribeSuccess() SubscribeReturn { return SubscribeReturn{} }

// SubscribeFailure is a failed SubscribeReturn carrying code.
func SubscribeFailure(code ErrorCode) SubscribeReturn { return SubscribeReturn{Err: code} }

// OK reports whether the subscription was accepted.
func (r SubscribeReturn) OK() bool { return r.Err == 0 }

func (r SubscribeReturn) String() string {
	if r.OK() {
		return "Success"
	}
	return fmt.Sprintf("Failure(%s)", r.Err)
}

// AllowReturn is the result of an allow call. On success Previous holds
// the buffer that was shared before this call (nil if none).
type AllowReturn struct {
	Err      ErrorCode
	Previous []byte
}

// AllowSuccess is a successful AllowReturn handing back prev.
func AllowSuccess(prev []byte) AllowReturn { return AllowReturn{Previous: prev} }

// AllowFailure is a failed AllowReturn carrying code.
func AllowFailure(code ErrorCode) AllowReturn { return AllowReturn{Err: code} }

// OK reports whether the buffer was shared.
func (r AllowReturn) OK() bool { return r.Err == 0 }

func (r AllowReturn) String() string {
	if r.OK() {
		return fmt.Sprintf("Success(previous: %d bytes)", len(r.Previous))
	}
	return fmt.Sprintf("Failure(%s)", r.Err)
}

// MemopOp selects the memory operation performed by memop.
type MemopOp uint32

const (
	MemopBrk             MemopOp = 0
	MemopSbrk            MemopOp = 1
	MemopMemoryStart     MemopOp = 2
	MemopMemoryEnd       MemopOp = 3
	MemopFlashStart      MemopOp = 4
	MemopFlashEnd        MemopOp = 5
	MemopGrantStart      MemopOp = 6
	MemopFlashRegions    MemopOp = 7
	MemopDebugStackStart MemopOp = 10
	MemopDebugHeapStart  MemopOp = 11
)

var memopNames = map[MemopOp]string{
	MemopBrk:             "brk",
	MemopSbrk:            "sbrk",
	MemopMemoryStart:     "memory_start",
	MemopMemoryEnd:       "memory_end",
	MemopFlashStart:      "flash_start",
	MemopFlashEnd:        "flash_end",
	MemopGrantStart:      "grant_start",
	MemopFlashRegions:    "flash_regions",
	MemopDebugStackStart: "debug_stack_start",
	MemopDebugHeapStart:  "debug_heap_start",
}

func (op MemopOp) String() string {
	if name, ok := memopNames[op]; ok {
		return name
	}
	return fmt.Sprintf("MemopOp(%d)", uint32(op))
}

// ParseMemopOp maps a name such as "sbrk" to its operation.
func ParseMemopOp(name string) (MemopOp, error) {
	for op, n := range memopNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown memop %q", name)
}

// ExitKind selects between terminating and restarting the process.
type ExitKind uint32

const (
	ExitTerminate ExitKind = 0
	ExitRestart   ExitKind = 1
)

func (k ExitKind) String() string {
	switch k {
	case ExitTerminate:
		return "terminate"
	case ExitRestart:
		return "restart"
	default:
		return fmt.Sprintf("ExitKind(%d)", uint32(k))
	}
}

// ParseExitKind maps "terminate" or "restart" to an ExitKind.
func ParseExitKind(name string) (ExitKind, error) {
	switch name {
	case "terminate":
		return ExitTerminate, nil
	case "restart":
		return ExitRestart, nil
	default:
		return 0, fmt.Errorf("unknown exit kind %q", name)
	}
}

// UpcallFunc is the callback a driver registers with subscribe. The kernel
// invokes it with three argument registers and the userdata value given
// at subscribe time.
type UpcallFunc func(arg0, arg1, arg2 uint32, userdata uintptr)

// Syscalls is the system call interface drivers are written against.
//
// Exit does not return control to the process on a real kernel; callers
// must treat it as the last call they make.
type Syscalls interface {
	YieldNoWait() YieldReturn
	YieldWait() YieldReturn
	Command(driverID, commandID, arg0, arg1 uint32) CommandReturn
	Subscribe(driverID, subscribeID uint32, upcall UpcallFunc, userdata uintptr) SubscribeReturn
	AllowRO(driverID, bufferID uint32, buf []byte) AllowReturn
	AllowRW(driverID, bufferID uint32, buf []byte) AllowReturn
	Memop(op MemopOp, arg uint32) CommandReturn
	Exit(kind ExitKind, code uint32)
}
