// Package adapter provides the warehouse adapter contract used by the
// songplays pipeline.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves via init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/songplays/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all warehouse adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the warehouse using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Exec executes a statement that doesn't return rows and reports the
	// affected row count, or -1 when the driver cannot tell.
	Exec(ctx context.Context, sql string) (int64, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// TableExists reports whether a table is present in the target schema.
	TableExists(ctx context.Context, table string) (bool, error)

	// DialectName names the SQL dialect (see pkg/dialect) that generates statements for this adapter.
	DialectName() string
}
