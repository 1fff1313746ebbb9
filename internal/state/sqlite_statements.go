package state

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/songplays/pkg/core"
)

// RecordStatement inserts or replaces a statement run. An empty ID is assigned.
func (s *SQLiteStore) RecordStatement(sr *core.StatementRun) error {
	if s.db == nil {
		return ErrNotOpened
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}

	_, err := s.db.ExecContext(ctx(), `
		INSERT INTO statement_runs (
			id, run_id, stage, ordinal, name, table_name, sql_text, status,
			rows_affected, execution_ms, error, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			rows_affected = excluded.rows_affected,
			execution_ms = excluded.execution_ms,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		sr.ID, sr.RunID, string(sr.Stage), sr.Ordinal, sr.Name, sr.Table, sr.SQL, string(sr.Status),
		sr.RowsAffected, sr.ExecutionMS, nullString(sr.Error),
		formatTimePtr(sr.StartedAt), formatTimePtr(sr.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record statement %s: %w", sr.Name, err)
	}
	return nil
}

// GetStatementRuns returns the statements of a run in execution order.
func (s *SQLiteStore) GetStatementRuns(runID string) ([]*core.StatementRun, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx(), `
		SELECT id, run_id, stage, ordinal, name, table_name, sql_text, status,
		       rows_affected, execution_ms, error, started_at, completed_at
		FROM statement_runs
		WHERE run_id = ?
		ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get statement runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.StatementRun
	for rows.Next() {
		var (
			sr                 core.StatementRun
			stage, status      string
			errText            sql.NullString
			started, completed sql.NullString
		)
		if err := rows.Scan(&sr.ID, &sr.RunID, &stage, &sr.Ordinal, &sr.Name, &sr.Table, &sr.SQL, &status,
			&sr.RowsAffected, &sr.ExecutionMS, &errText, &started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan statement run: %w", err)
		}
		sr.Stage = core.Stage(stage)
		sr.Status = core.StatementRunStatus(status)
		sr.Error = errText.String
		if sr.StartedAt, err = parseNullTime(started); err != nil {
			return nil, err
		}
		if sr.CompletedAt, err = parseNullTime(completed); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	return out, rows.Err()
}
