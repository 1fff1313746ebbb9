package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotConnected is returned when an operation runs before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Ping, Exec, Query and TableExists implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
	// DefaultSchema is used by TableExists when Cfg.Schema is empty.
	DefaultSchema string
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Ping verifies the connection is alive.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if err := b.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) (int64, error) {
	if b.DB == nil {
		return 0, ErrNotConnected
	}
	res, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return 0, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil //nolint:nilerr // drivers without row counts are not an execution failure
	}
	return n, nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// TableExists checks information_schema for the table.
func (b *BaseSQLAdapter) TableExists(ctx context.Context, table string) (bool, error) {
	if b.DB == nil {
		return false, ErrNotConnected
	}
	schema, name := b.ParseQualifiedName(table)

	var n int
	err := b.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		schema, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Falls back to the configured schema, then DefaultSchema.
func (b *BaseSQLAdapter) ParseQualifiedName(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	if b.Cfg.Schema != "" {
		return b.Cfg.Schema, table
	}
	return b.DefaultSchema, table
}
