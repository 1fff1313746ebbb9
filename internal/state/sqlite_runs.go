package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
)

const runColumns = `id, environment, target, stages, status, started_at, completed_at, error`

// CreateRun creates a new pipeline run.
func (s *SQLiteStore) CreateRun(env, target string, stages []core.Stage) (*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	run := &core.Run{
		ID:          generateID(),
		Environment: env,
		Target:      target,
		Stages:      stages,
		Status:      core.RunStatusRunning,
		StartedAt:   s.clock.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("environment", env))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, environment, target, stages, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Environment, run.Target, joinStages(stages), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return ErrNotOpened
	}

	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(now), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID. A unique ID prefix is accepted.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("run not found: %s", id)
	case runs[0].ID == id:
		return runs[0], nil
	case len(runs) > 1:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
	return runs[0], nil
}

// GetLatestRun retrieves the most recent run for an environment.
func (s *SQLiteStore) GetLatestRun(env string) (*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	row := s.db.QueryRowContext(ctx(),
		`SELECT `+runColumns+` FROM runs WHERE environment = ? ORDER BY started_at DESC LIMIT 1`, env)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No runs found, return nil without error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	var (
		run                core.Run
		stages, status     string
		started            string
		completed, errText sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Environment, &run.Target, &stages, &status, &started, &completed, &errText); err != nil {
		return nil, err
	}

	var err error
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	run.Status = core.RunStatus(status)
	run.Stages = splitStages(stages)
	run.Error = errText.String
	return &run, nil
}

func scanRuns(rows *sql.Rows) ([]*core.Run, error) {
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func joinStages(stages []core.Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}

func splitStages(s string) []core.Stage {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	stages := make([]core.Stage, len(parts))
	for i, p := range parts {
		stages[i] = core.Stage(p)
	}
	return stages
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
