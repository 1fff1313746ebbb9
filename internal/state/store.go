// Package state records pipeline runs in a local SQLite database: each run,
// every statement it executed, and the row counts it observed.
package state

import (
	"github.com/leapstack-labs/songplays/pkg/core"
)

// Store persists run history.
type Store interface {
	CreateRun(env, target string, stages []core.Stage) (*core.Run, error)
	CompleteRun(id string, status core.RunStatus, errMsg string) error
	GetRun(id string) (*core.Run, error)
	GetLatestRun(env string) (*core.Run, error)
	ListRuns(limit int) ([]*core.Run, error)

	RecordStatement(sr *core.StatementRun) error
	GetStatementRuns(runID string) ([]*core.StatementRun, error)

	SaveRowCounts(runID string, counts *core.RowCounts) error
	GetRowCounts(runID string) (*core.RowCounts, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
