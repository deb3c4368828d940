package trace

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden trace files live, relative to the test's package.
const GoldenDir = "testdata/golden"

// AssertGolden compares events against testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, events []Event) {
	t.Helper()

	data, err := MarshalLines(events)
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
