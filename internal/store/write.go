package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its trace events in one transaction.
// Writing a run whose ID already exists is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty run ID")
	}

	errsJSON, err := marshalErrors(run.Errors)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run %s: begin: %w", run.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, passed, errors)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Scenario, run.Passed, errsJSON)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (run_id, seq, type, syscall, call, ret, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %s: prepare events: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, e := range run.Events {
		if _, err := stmt.ExecContext(ctx,
			run.ID, e.Seq, string(e.Type), e.Syscall, e.Call, e.Return, e.Detail,
		); err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}
