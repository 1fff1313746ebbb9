// Package duckdb renders pipeline statements for DuckDB, used to run the
// pipeline locally against files or object storage.
//
// Physical hints (sort and distribution keys) have no DuckDB equivalent and
// are dropped. Key constraints are omitted because DuckDB enforces them while
// Redshift only declares them, and the pipeline relies on the latter.
package duckdb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect.
var DuckDB = &Dialect{}

// Dialect implements dialect.Dialect for DuckDB.
type Dialect struct{}

// Name implements dialect.Dialect.
func (*Dialect) Name() string { return "duckdb" }

// DefaultSchema implements dialect.Dialect.
func (*Dialect) DefaultSchema() string { return "main" }

// ResolvesJSONPaths is true: columns are projected from each JSON object in SQL.
func (*Dialect) ResolvesJSONPaths() bool { return true }

// typeAliases maps Redshift types whose meaning differs in DuckDB.
var typeAliases = map[string]string{
	"FLOAT":  "DOUBLE",
	"FLOAT8": "DOUBLE",
	"FLOAT4": "REAL",
}

func mapType(t string) string {
	if alias, ok := typeAliases[strings.ToUpper(t)]; ok {
		return alias
	}
	return t
}

// SequenceName is the sequence backing an identity column.
func SequenceName(table, column string) string {
	return fmt.Sprintf("%s_%s_seq", table, column)
}

// CreateTable renders the table, preceded by a sequence for each identity column.
func (*Dialect) CreateTable(t *core.Table) []string {
	var stmts []string
	cols := make([]dialect.ColumnDef, 0, len(t.Columns))
	for _, c := range t.Columns {
		var attrs []string
		if c.Identity {
			seq := SequenceName(t.Name, c.Name)
			stmts = append(stmts, fmt.Sprintf("CREATE SEQUENCE %s MINVALUE 0 START 0", seq))
			attrs = append(attrs, fmt.Sprintf("DEFAULT nextval(%s)", dialect.QuoteString(seq)))
		}
		if c.NotNull {
			attrs = append(attrs, "NOT NULL")
		}
		cols = append(cols, dialect.ColumnDef{Name: c.Name, Type: mapType(c.Type), Attrs: attrs})
	}
	return append(stmts, dialect.FormatCreate(t.Name, cols))
}

// DropTable drops the table, then any identity sequences it owned.
func (*Dialect) DropTable(t *core.Table) []string {
	stmts := []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)}
	for _, c := range t.Columns {
		if c.Identity {
			stmts = append(stmts, fmt.Sprintf("DROP SEQUENCE IF EXISTS %s", SequenceName(t.Name, c.Name)))
		}
	}
	return stmts
}

// CopyJSON renders an INSERT ... SELECT over read_json_objects. Each column
// is extracted by its JSONPaths expression, or by its own name for auto
// mapping, and cast to the column type.
func (*Dialect) CopyJSON(spec core.CopySpec) (dialect.Copy, error) {
	if spec.Table == nil {
		return dialect.Copy{}, fmt.Errorf("copy: table is required")
	}
	if spec.Source == "" {
		return dialect.Copy{}, fmt.Errorf("copy %s: source location is required", spec.Table.Name)
	}

	cols := spec.Table.Columns
	paths := spec.Paths
	auto := spec.JSONPaths == "" || strings.EqualFold(spec.JSONPaths, core.JSONPathsAuto)
	if auto {
		paths = make([]string, len(cols))
		for i, c := range cols {
			paths[i] = KeyPath(c.Name)
		}
	}
	if len(paths) != len(cols) {
		return dialect.Copy{}, &dialect.MissingPathsError{
			Table: spec.Table.Name, Want: len(cols), Got: len(paths), Dialect: "duckdb",
		}
	}

	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = fmt.Sprintf("    %s AS %s", extractExpr(c, paths[i], spec.TimeFormat), c.Name)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s)\nSELECT\n%s\nFROM read_json_objects(%s, format = 'auto')",
		spec.Table.Name,
		strings.Join(spec.Table.ColumnNames(), ", "),
		strings.Join(exprs, ",\n"),
		dialect.QuoteString(sourceGlob(spec.Source)),
	)
	return dialect.Copy{SQL: sql, Redacted: sql}, nil
}

func extractExpr(c core.Column, path, timeFormat string) string {
	raw := fmt.Sprintf("json_extract_string(json, %s)", dialect.QuoteString(path))
	typ := strings.ToUpper(mapType(c.Type))

	switch {
	case typ == "TIMESTAMP" && timeFormat == core.TimeFormatEpochMillis:
		return fmt.Sprintf("epoch_ms(CAST(NULLIF(%s, '') AS BIGINT))", raw)
	case isCharacter(typ):
		return fmt.Sprintf("CAST(%s AS %s)", raw, mapType(c.Type))
	default:
		return fmt.Sprintf("CAST(NULLIF(%s, '') AS %s)", raw, mapType(c.Type))
	}
}

func isCharacter(typ string) bool {
	return strings.HasPrefix(typ, "VARCHAR") || strings.HasPrefix(typ, "CHAR") || typ == "TEXT"
}

// sourceGlob turns a location into a glob over the JSON files below it.
func sourceGlob(source string) string {
	src := strings.TrimPrefix(source, "file://")
	if strings.ContainsAny(src, "*?[") || strings.HasSuffix(strings.ToLower(src), ".json") {
		return src
	}
	return strings.TrimRight(src, "/") + "/**/*.json"
}

var simpleKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KeyPath renders a JSON path selecting a top-level key.
func KeyPath(key string) string {
	if simpleKey.MatchString(key) {
		return "$." + key
	}
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

// DatePart implements dialect.Dialect.
func (*Dialect) DatePart(part dialect.DatePart, expr string) string {
	if part == dialect.PartDayOfWeek {
		part = "dow"
	}
	return fmt.Sprintf("EXTRACT(%s FROM %s)", part, expr)
}

var _ dialect.Dialect = (*Dialect)(nil)
