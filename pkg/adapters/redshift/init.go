package redshift

import (
	"log/slog"

	"github.com/leapstack-labs/songplays/pkg/adapter"

	// Import dialect to ensure it's registered
	_ "github.com/leapstack-labs/songplays/pkg/dialects/redshift"
)

func init() {
	adapter.Register("redshift", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
