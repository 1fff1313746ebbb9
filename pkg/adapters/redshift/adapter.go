// Package redshift provides an Amazon Redshift warehouse adapter.
//
// Redshift speaks the PostgreSQL wire protocol, so the adapter runs on the
// pgx driver through database/sql.
package redshift

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/songplays/pkg/adapter"
)

// DefaultPort is the Redshift cluster port.
const DefaultPort = 5439

// DefaultSchema is the schema tables land in when none is configured.
const DefaultSchema = "public"

// Adapter implements the adapter.Adapter interface for Redshift.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new Redshift adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, DefaultSchema: DefaultSchema},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "redshift"
}

// Connect establishes a connection to the cluster.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildRedshiftDSN(cfg)

	a.Logger.Debug("connecting to redshift",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open redshift connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping redshift: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildRedshiftDSN constructs a key=value connection string.
// Redshift rejects some extended-protocol features, so the simple protocol
// is used unless the options say otherwise.
func buildRedshiftDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	opts := map[string]string{
		"sslmode":                 "prefer",
		"default_query_exec_mode": "simple_protocol",
	}
	for k, v := range cfg.Options {
		opts[k] = v
	}

	parts := []string{
		"host=" + dsnValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + dsnValue(cfg.Database),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(opts[k]))
	}

	return strings.Join(parts, " ")
}

// dsnValue quotes a connection string value when it is empty or contains
// spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
