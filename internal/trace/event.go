// Package trace records what happened inside a fake kernel run.
//
// Every syscall, every upcall made ready or delivered, and every protocol
// violation becomes an Event stamped with a logical sequence number. Traces
// are rendered as canonical JSON lines so they can be compared byte-for-byte
// against golden files and persisted by the store.
package trace

// EventType distinguishes trace entries.
type EventType string

const (
	// EventSyscall is a system call issued by the driver.
	EventSyscall EventType = "syscall"
	// EventReady is an upcall marked ready by the test harness.
	EventReady EventType = "ready"
	// EventUpcall is an upcall delivered to the driver during a yield.
	EventUpcall EventType = "upcall"
	// EventViolation is a protocol violation reported by the kernel.
	EventViolation EventType = "violation"
)

// Event is one entry in a kernel trace.
type Event struct {
	Seq  int64     `json:"seq"`
	Type EventType `json:"type"`

	// Syscall is the syscall class name for EventSyscall entries.
	Syscall string `json:"syscall,omitempty"`

	// Call renders the actual call (or the upcall target and arguments).
	Call string `json:"call,omitempty"`

	// Return renders the value handed back to the driver.
	Return string `json:"return,omitempty"`

	// Detail carries the violation message.
	Detail string `json:"detail,omitempty"`
}

// Recorder accumulates events in order.
type Recorder struct {
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make([]Event, 0, 32)}
}

// Record appends e and returns its index.
func (r *Recorder) Record(e Event) int {
	r.events = append(r.events, e)
	return len(r.events) - 1
}

// SetReturn fills in the return value of the event at index i. Syscalls
// are recorded on entry so that upcalls they run are ordered after them;
// the return is only known once the call completes.
func (r *Recorder) SetReturn(i int, ret string) {
	if i >= 0 && i < len(r.events) {
		r.events[i].Return = ret
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Filter returns the events of type t, in order.
func Filter(events []Event, t EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
