package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/fakekernel/internal/scenario"
)

// FileValidation is the validation outcome for one scenario file.
type FileValidation struct {
	File   string   `json:"file"`
	Name   string   `json:"name,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results for a directory.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the embedded CUE schema, then check
that every expectation and step is well-formed for its driver.

Exit codes:
  0 - All scenarios are valid
  1 - One or more scenarios are invalid
  2 - Command error (directory not found, no files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := scenarioFiles(formatter, dir, "")
	if err != nil {
		return err
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), dir)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	names := make(map[string]string)
	for _, f := range files {
		fv := FileValidation{File: f, Valid: true}
		s, err := scenario.ValidateFile(f)
		switch {
		case err != nil:
			fv.Valid = false
			fv.Errors = validationMessages(err)
		default:
			fv.Name = s.Name
			if prev, dup := names[s.Name]; dup {
				fv.Valid = false
				fv.Errors = []string{fmt.Sprintf("duplicate scenario name %q (also in %s)", s.Name, prev)}
			}
			names[s.Name] = f
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.JSON() {
		if !result.Valid {
			if err := formatter.Fail(ErrCodeInvalid, "scenario validation failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "scenario validation failed")
		}
		return formatter.Success(result)
	}

	for _, fv := range result.Files {
		if fv.Valid {
			formatter.Textf("✓ %s", filepath.Base(fv.File))
			continue
		}
		formatter.Textf("✗ %s", filepath.Base(fv.File))
		for _, e := range fv.Errors {
			formatter.Textf("  %s", e)
		}
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "scenario validation failed")
	}
	formatter.Textf("All %d scenario(s) valid", len(result.Files))
	return nil
}

// scenarioFiles lists scenario files in dir whose base name (without
// extension) matches filter. Errors are reported through the formatter
// and returned as command errors.
func scenarioFiles(formatter *OutputFormatter, dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		msg := fmt.Sprintf("scenarios directory not found: %s", dir)
		if ferr := formatter.Error(ErrCodeNotFound, msg, nil); ferr != nil {
			return nil, ferr
		}
		return nil, NewExitError(ExitCommandError, msg)
	}

	all, err := scenario.FindScenarioFiles(dir)
	if err != nil {
		msg := fmt.Sprintf("error scanning directory: %v", err)
		if ferr := formatter.Error(ErrCodeGeneric, msg, nil); ferr != nil {
			return nil, ferr
		}
		return nil, NewExitError(ExitCommandError, msg)
	}

	var files []string
	for _, f := range all {
		if filter != "" {
			base := filepath.Base(f)
			matched, err := filepath.Match(filter, base[:len(base)-len(filepath.Ext(base))])
			if err != nil {
				msg := fmt.Sprintf("invalid filter pattern %q: %v", filter, err)
				if ferr := formatter.Error(ErrCodeBadFilter, msg, nil); ferr != nil {
					return nil, ferr
				}
				return nil, NewExitError(ExitCommandError, msg)
			}
			if !matched {
				continue
			}
		}
		files = append(files, f)
	}

	if len(files) == 0 {
		msg := fmt.Sprintf("no scenario files found in %s", dir)
		if ferr := formatter.Error(ErrCodeNoFiles, msg, nil); ferr != nil {
			return nil, ferr
		}
		return nil, NewExitError(ExitCommandError, msg)
	}
	return files, nil
}

func validationMessages(err error) []string {
	if se, ok := err.(*scenario.SchemaError); ok {
		return se.Messages
	}
	return []string{err.Error()}
}
