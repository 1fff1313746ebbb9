package core

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a pipeline execution session.
type Run struct {
	ID          string
	Environment string
	Target      string
	Stages      []Stage
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StatementRunStatus represents the status of an individual statement execution.
type StatementRunStatus string

// Statement run status constants.
const (
	StatementRunStatusPending StatementRunStatus = "pending"
	StatementRunStatusRunning StatementRunStatus = "running"
	StatementRunStatusSuccess StatementRunStatus = "success"
	StatementRunStatusFailed  StatementRunStatus = "failed"
	StatementRunStatusSkipped StatementRunStatus = "skipped"
)

// StatementRun records the execution of a single statement within a run.
type StatementRun struct {
	ID           string
	RunID        string
	Stage        Stage
	Ordinal      int
	Name         string
	Table        string
	SQL          string
	Status       StatementRunStatus
	RowsAffected int64
	ExecutionMS  int64
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int64
}

// RowCounts is the single-row summary of row counts across all tables.
type RowCounts struct {
	Counts []TableCount
}

// Get returns the count for a table.
func (r *RowCounts) Get(table string) (int64, bool) {
	for _, c := range r.Counts {
		if c.Table == table {
			return c.Rows, true
		}
	}
	return 0, false
}

// Total returns the sum of all counts.
func (r *RowCounts) Total() int64 {
	var total int64
	for _, c := range r.Counts {
		total += c.Rows
	}
	return total
}
