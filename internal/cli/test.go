package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/fakekernel/internal/scenario"
	"github.com/roach88/fakekernel/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter    string // scenario filter (glob on file name without extension)
	Database  string // persist runs here when set
	GoldenDir string // compare traces against golden files here when set
	Update    bool   // rewrite golden files instead of comparing

	runIDs store.RunIDGenerator
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts, runIDs: store.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenarios against the fake kernel",
		Long: `Run every scenario in a directory against a fresh fake kernel.

Each run can be persisted to a SQLite database (--db) and its trace
compared against golden files (--golden, regenerated with --update).

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unwritable database, etc.)

Examples:
  fakekernel test ./scenarios
  fakekernel test ./scenarios --filter "button_*"
  fakekernel test ./scenarios --golden ./scenarios/golden --update
  fakekernel test ./scenarios --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist runs to this SQLite database")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	if opts.Update && opts.GoldenDir == "" {
		msg := "--update requires --golden"
		if err := formatter.Error(ErrCodeGeneric, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, msg)
	}

	files, err := scenarioFiles(formatter, dir, opts.Filter)
	if err != nil {
		return err
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			msg := fmt.Sprintf("failed to open database %s", opts.Database)
			if ferr := formatter.Error(ErrCodeStore, msg, err.Error()); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, msg, err)
		}
		defer st.Close()
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, f := range files {
		sr, err := runScenarioFile(ctx, opts, st, f, logger)
		if err != nil {
			msg := fmt.Sprintf("failed to persist run of %s", f)
			if ferr := formatter.Error(ErrCodeStore, msg, err.Error()); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitCommandError, msg, err)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		printScenarioResult(formatter, opts, sr)
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
		if formatter.JSON() {
			if err := formatter.Fail(ErrCodeTestsFailed, msg, result); err != nil {
				return err
			}
		} else {
			formatter.Textf("\n%s", summary)
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	formatter.Textf("\n%s", summary)
	return nil
}

// runScenarioFile loads, runs, golden-checks and persists one scenario.
// Scenario failures are reported in the result; the returned error is
// reserved for persistence failures, which abort the command.
func runScenarioFile(ctx context.Context, opts *TestOptions, st *store.Store, file string, logger *slog.Logger) (ScenarioResult, error) {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	s, err := scenario.ValidateFile(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr, nil
	}
	sr.Name = s.Name

	res, err := scenario.Run(s, scenario.WithLogger(logger))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr, nil
	}

	if opts.GoldenDir != "" {
		if err := scenario.CheckGolden(opts.GoldenDir, res, opts.Update); err != nil {
			res.AddError(err.Error())
		}
	}

	sr.Pass = res.Pass
	if len(res.Errors) > 0 {
		sr.Errors = res.Errors
	}

	if st != nil {
		sr.RunID = opts.runIDs.Generate()
		err := st.WriteRun(ctx, store.Run{
			ID:       sr.RunID,
			Scenario: s.Name,
			Passed:   res.Pass,
			Errors:   res.Errors,
			Events:   res.Trace,
		})
		if err != nil {
			return sr, err
		}
		logger.Debug("run persisted", "scenario", s.Name, "run_id", sr.RunID)
	}
	return sr, nil
}

func printScenarioResult(f *OutputFormatter, opts *TestOptions, sr ScenarioResult) {
	if !sr.Pass {
		f.Textf("✗ %s", sr.Name)
		for _, e := range sr.Errors {
			f.Textf("  %s", e)
		}
		return
	}
	suffix := ""
	if opts.Update {
		suffix = " (golden updated)"
	}
	if sr.RunID != "" {
		suffix += " [run " + sr.RunID + "]"
	}
	f.Textf("✓ %s%s", sr.Name, suffix)
}
