// Package duckdb provides a DuckDB warehouse adapter for running the
// pipeline locally against files or object storage.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/adapter"
	"github.com/marcboeker/go-duckdb"
)

// DefaultSchema is DuckDB's default schema.
const DefaultSchema = "main"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
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
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
// Settings are applied to each pooled connection; extensions and secrets once per database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	a.Logger.Debug("opening duckdb", slog.String("path", path))

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		for _, stmt := range settingStatements(params.Settings) {
			if _, err := execer.ExecContext(context.Background(), stmt, nil); err != nil {
				return fmt.Errorf("failed to apply setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, ext := range params.extensions() {
		a.Logger.Debug("loading extension", slog.String("extension", ext))
		for _, stmt := range []string{"INSTALL " + ext, "LOAD " + ext} {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to load extension %s: %w", ext, err)
			}
		}
	}

	for _, secret := range params.Secrets {
		a.Logger.Debug("creating secret", slog.String("type", secret.Type), slog.String("provider", secret.Provider))
		if _, err := db.ExecContext(ctx, buildCreateSecretSQL(secret)); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params
	return nil
}

// settingStatements renders SET statements in key order.
func settingStatements(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", k, quote(settings[k])))
	}
	return stmts
}

// buildCreateSecretSQL renders a CREATE SECRET statement.
func buildCreateSecretSQL(cfg SecretConfig) string {
	opts := []string{"TYPE " + cfg.Type}
	if cfg.Provider != "" {
		opts = append(opts, "PROVIDER "+cfg.Provider)
	}
	if cfg.Region != "" {
		opts = append(opts, "REGION "+quote(cfg.Region))
	}
	if scope := renderScope(cfg.Scope); scope != "" {
		opts = append(opts, "SCOPE "+scope)
	}
	if cfg.KeyID != "" {
		opts = append(opts, "KEY_ID "+quote(cfg.KeyID))
	}
	if cfg.Secret != "" {
		opts = append(opts, "SECRET "+quote(cfg.Secret))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, "ENDPOINT "+quote(cfg.Endpoint))
	}
	if cfg.URLStyle != "" {
		opts = append(opts, "URL_STYLE "+quote(cfg.URLStyle))
	}
	if cfg.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)"
}

func renderScope(scope any) string {
	var items []string
	switch s := scope.(type) {
	case nil:
		return ""
	case string:
		return quote(s)
	case []string:
		items = s
	case []any:
		for _, v := range s {
			items = append(items, fmt.Sprint(v))
		}
	default:
		return quote(fmt.Sprint(s))
	}
	if len(items) == 0 {
		return ""
	}
	if len(items) == 1 {
		return quote(items[0])
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
