package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/fakekernel/internal/trace"
)

// ErrGoldenMismatch is returned when a trace differs from its golden file.
var ErrGoldenMismatch = errors.New("trace differs from golden file")

// GoldenPath returns the golden file for the named scenario under dir.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, name+".golden")
}

// CheckGolden compares the result's trace against its golden file in dir.
// With update set, the golden file is (re)written instead.
func CheckGolden(dir string, r *Result, update bool) error {
	data, err := trace.MarshalLines(r.Trace)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	path := GoldenPath(dir, r.Scenario)
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if bytes.Equal(want, data) {
		return nil
	}
	return fmt.Errorf("%s: %w: %s", path, ErrGoldenMismatch, firstDiff(want, data))
}

func firstDiff(want, got []byte) string {
	wl := bytes.Split(want, []byte("\n"))
	gl := bytes.Split(got, []byte("\n"))
	for i := 0; i < len(wl) || i < len(gl); i++ {
		var w, g []byte
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if !bytes.Equal(w, g) {
			return fmt.Sprintf("line %d: want %q, got %q", i+1, w, g)
		}
	}
	return "identical lines"
}
