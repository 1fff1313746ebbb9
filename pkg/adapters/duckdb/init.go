package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/songplays/pkg/adapter"

	// Import dialect to ensure it's registered
	_ "github.com/leapstack-labs/songplays/pkg/dialects/duckdb"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
