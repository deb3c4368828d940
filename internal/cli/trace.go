package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fakekernel/internal/store"
	"github.com/roach88/fakekernel/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // defaults to the latest run
	Type     string // optional event type filter
	List     bool   // list runs instead of printing a trace
}

// TraceResult is a persisted run with its trace.
type TraceResult struct {
	RunID    string        `json:"run_id"`
	Scenario string        `json:"scenario"`
	Pass     bool          `json:"pass"`
	Errors   []string      `json:"errors,omitempty"`
	Events   []trace.Event `json:"events"`
}

// RunSummary is one entry of --list output.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Pass     bool   `json:"pass"`
}

var validEventTypes = map[string]bool{
	string(trace.EventSyscall):   true,
	string(trace.EventReady):     true,
	string(trace.EventUpcall):    true,
	string(trace.EventViolation): true,
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a persisted kernel trace",
		Long: `Print the system calls, upcalls and violations recorded for a run
persisted by "fakekernel test --db".

Examples:
  fakekernel trace --db runs.db
  fakekernel trace --db runs.db --run 0192d3c4-...
  fakekernel trace --db runs.db --type violation
  fakekernel trace --db runs.db --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database written by the test command (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (defaults to the latest run)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only show events of this type (syscall|ready|upcall|violation)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list persisted runs")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Type != "" && !validEventTypes[opts.Type] {
		msg := fmt.Sprintf("invalid event type %q", opts.Type)
		if err := formatter.Error(ErrCodeGeneric, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, msg)
	}

	// Open would create a missing database; a trace needs an existing one.
	if _, err := os.Stat(opts.Database); err != nil {
		msg := fmt.Sprintf("database not found: %s", opts.Database)
		if ferr := formatter.Error(ErrCodeNotFound, msg, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		msg := fmt.Sprintf("failed to open database %s", opts.Database)
		if ferr := formatter.Error(ErrCodeStore, msg, err.Error()); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, msg, err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, formatter, st)
	}

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if err != nil {
		code := ErrCodeStore
		if errors.Is(err, store.ErrRunNotFound) {
			code = ErrCodeRunNotFound
		}
		if ferr := formatter.Error(code, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events := run.Events
	if opts.Type != "" {
		events = trace.Filter(events, trace.EventType(opts.Type))
		if events == nil {
			events = []trace.Event{}
		}
	}

	if formatter.JSON() {
		return formatter.Success(TraceResult{
			RunID:    run.ID,
			Scenario: run.Scenario,
			Pass:     run.Passed,
			Errors:   run.Errors,
			Events:   events,
		})
	}

	status := "PASS"
	if !run.Passed {
		status = "FAIL"
	}
	formatter.Textf("Run %s: %s [%s]", run.ID, run.Scenario, status)
	for _, e := range events {
		formatter.Textf("%s", formatEvent(e))
	}
	for _, e := range run.Errors {
		formatter.Textf("error: %s", e)
	}
	return nil
}

func listRuns(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		if ferr := formatter.Error(ErrCodeStore, "failed to list runs", err.Error()); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{RunID: r.ID, Scenario: r.Scenario, Pass: r.Passed}
	}
	if formatter.JSON() {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		formatter.Textf("No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		formatter.Textf("%s  %-4s  %s", s.RunID, status, s.Scenario)
	}
	return nil
}

// formatEvent renders one event as a trace line, e.g.
//
//	[0003] syscall    Command{driver_id: 3, ...} -> Success
func formatEvent(e trace.Event) string {
	line := fmt.Sprintf("[%04d] %-10s", e.Seq, e.Type)
	switch e.Type {
	case trace.EventViolation:
		return line + " " + e.Detail
	case trace.EventSyscall:
		if e.Return != "" {
			return line + " " + e.Call + " -> " + e.Return
		}
	}
	return line + " " + e.Call
}
