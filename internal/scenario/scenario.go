package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one driver test.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Driver selects the userspace driver under test ("buttons" or "leds").
	Driver string `yaml:"driver"`

	// FakeCount registers the driver's fake capsule with this many devices.
	// When zero, commands without an override return Success.
	FakeCount int `yaml:"fake_count,omitempty"`

	// Expect is the ordered list of system calls the driver must make.
	Expect []ExpectStep `yaml:"expect"`

	// Steps drive the test.
	Steps []Step `yaml:"steps"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// ExpectStep holds exactly one expected system call.
type ExpectStep struct {
	YieldNoWait *YieldNoWaitSpec `yaml:"yield_no_wait,omitempty"`
	YieldWait   *YieldWaitSpec   `yaml:"yield_wait,omitempty"`
	Command     *CommandSpec     `yaml:"command,omitempty"`
	Subscribe   *SubscribeSpec   `yaml:"subscribe,omitempty"`
	AllowRO     *AllowSpec       `yaml:"allow_ro,omitempty"`
	AllowRW     *AllowSpec       `yaml:"allow_rw,omitempty"`
	Memop       *MemopSpec       `yaml:"memop,omitempty"`
	Exit        *ExitSpec        `yaml:"exit,omitempty"`
}

// YieldNoWaitSpec expects a yield-no-wait.
type YieldNoWaitSpec struct {
	// Return overrides the result: "upcall" or "no_upcall".
	Return string `yaml:"return,omitempty"`
}

// YieldWaitSpec expects a yield-wait. SkipUpcall returns without
// delivering a ready upcall.
type YieldWaitSpec struct {
	SkipUpcall bool `yaml:"skip_upcall,omitempty"`
}

// CommandSpec expects a command with exactly these four arguments.
type CommandSpec struct {
	DriverID  uint32      `yaml:"driver_id"`
	CommandID uint32      `yaml:"command_id"`
	Argument0 uint32      `yaml:"argument0"`
	Argument1 uint32      `yaml:"argument1"`
	Return    *ReturnSpec `yaml:"return,omitempty"`
}

// SubscribeSpec expects a subscribe to one upcall slot.
type SubscribeSpec struct {
	DriverID    uint32           `yaml:"driver_id"`
	SubscribeID uint32           `yaml:"subscribe_id"`
	Return      *FailureOnlySpec `yaml:"return,omitempty"`
}

// AllowSpec expects a read-only or read-write allow of one buffer slot.
type AllowSpec struct {
	DriverID uint32           `yaml:"driver_id"`
	BufferID uint32           `yaml:"buffer_id"`
	Return   *FailureOnlySpec `yaml:"return,omitempty"`
}

// MemopSpec expects a memop. Op is a name such as "brk" or "sbrk".
type MemopSpec struct {
	Op       string      `yaml:"op"`
	Argument uint32      `yaml:"argument"`
	Return   *ReturnSpec `yaml:"return,omitempty"`
}

// ExitSpec expects an exit. Kind is "terminate" or "restart".
type ExitSpec struct {
	Kind string `yaml:"kind"`
	Code uint32 `yaml:"code"`
}

// ReturnSpec overrides a command or memop return. Exactly one field is set.
type ReturnSpec struct {
	Success          bool     `yaml:"success,omitempty"`
	SuccessU32       *uint32  `yaml:"success_u32,omitempty"`
	SuccessU32U32    []uint32 `yaml:"success_u32_u32,omitempty"`
	SuccessU32U32U32 []uint32 `yaml:"success_u32_u32_u32,omitempty"`
	SuccessU64       *uint64  `yaml:"success_u64,omitempty"`
	Failure          string   `yaml:"failure,omitempty"`
}

// FailureOnlySpec overrides a subscribe or allow return with a failure.
type FailureOnlySpec struct {
	Failure string `yaml:"failure"`
}

// Step is either a call into the driver or a simulated event.
type Step struct {
	// Call names the operation: open, count, enable, disable, read, close,
	// press, release (buttons); open, count, on, off, toggle (leds);
	// wait and poll (any driver).
	Call string `yaml:"call,omitempty"`

	Button *int `yaml:"button,omitempty"`
	LED    *int `yaml:"led,omitempty"`

	Want *Want `yaml:"want,omitempty"`

	// WantError is a driver error name (not_supported,
	// subscription_failed, activation_failed) or a kernel error code name.
	WantError string `yaml:"want_error,omitempty"`

	Ready *ReadySpec `yaml:"ready,omitempty"`
}

// Want is the expected outcome of a call. Only set fields are checked.
type Want struct {
	Button *int   `yaml:"button,omitempty"`
	State  string `yaml:"state,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
	Upcall *bool  `yaml:"upcall,omitempty"`
	Lit    *bool  `yaml:"lit,omitempty"`
}

// expectsEvent reports whether want checks the upcall a yield delivered.
// Such a want also requires that an upcall ran.
func (w *Want) expectsEvent() bool {
	return w.Button != nil || w.State != ""
}

// fields returns the names of the fields that are set.
func (w *Want) fields() []string {
	var names []string
	if w.Button != nil {
		names = append(names, "button")
	}
	if w.State != "" {
		names = append(names, "state")
	}
	if w.Count != nil {
		names = append(names, "count")
	}
	if w.Upcall != nil {
		names = append(names, "upcall")
	}
	if w.Lit != nil {
		names = append(names, "lit")
	}
	return names
}

// ReadySpec marks a subscribed upcall ready.
type ReadySpec struct {
	DriverID    uint32   `yaml:"driver_id"`
	SubscribeID uint32   `yaml:"subscribe_id"`
	Args        []uint32 `yaml:"args,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails structural validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// FindScenarioFiles returns the .yaml and .yml files directly in dir, sorted.
func FindScenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir loads every scenario in dir in file name order. Scenario names
// must be unique.
func LoadDir(dir string) ([]*Scenario, error) {
	files, err := FindScenarioFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan scenarios: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	seen := make(map[string]string)
	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, f)
		}
		seen[s.Name] = f
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
