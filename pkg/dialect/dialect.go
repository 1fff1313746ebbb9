// Package dialect provides the SQL dialect contract used to render pipeline
// statements for a warehouse.
//
// A dialect turns declared tables and bulk-load specs into statements the
// target engine accepts. Concrete dialects are registered from
// pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
)

// DatePart names a calendar component extracted from a timestamp.
type DatePart string

// Supported date parts.
const (
	PartHour      DatePart = "hour"
	PartDay       DatePart = "day"
	PartWeek      DatePart = "week"
	PartMonth     DatePart = "month"
	PartYear      DatePart = "year"
	PartDayOfWeek DatePart = "dayofweek"
)

// Copy is a rendered bulk-load statement.
type Copy struct {
	SQL string
	// Redacted is SQL with credentials masked. Equal to SQL when there is nothing to mask.
	Redacted string
}

// Dialect renders statements for one warehouse engine.
type Dialect interface {
	// Name is the registry key, e.g. "redshift".
	Name() string

	// DefaultSchema is the schema unqualified tables land in.
	DefaultSchema() string

	// CreateTable returns the statements that create t. They must fail if t exists.
	CreateTable(t *core.Table) []string

	// DropTable returns the statements that drop t and anything it owns.
	// They must be no-ops when t is absent.
	DropTable(t *core.Table) []string

	// CopyJSON renders a bulk load of JSON objects into a staging table.
	CopyJSON(spec core.CopySpec) (Copy, error)

	// ResolvesJSONPaths reports whether CopyJSON needs spec.Paths filled in
	// because the engine cannot read a JSONPaths descriptor itself.
	ResolvesJSONPaths() bool

	// DatePart renders extraction of part from a timestamp expression.
	DatePart(part DatePart, expr string) string
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatCreate lays out a CREATE TABLE statement with one column per line,
// names and types aligned.
func FormatCreate(table string, cols []ColumnDef) string {
	nameWidth, typeWidth := 0, 0
	for _, c := range cols {
		nameWidth = max(nameWidth, len(c.Name))
		typeWidth = max(typeWidth, len(c.Type))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", table)
	for i, c := range cols {
		line := fmt.Sprintf("    %-*s %-*s", nameWidth, c.Name, typeWidth, c.Type)
		if len(c.Attrs) > 0 {
			line += " " + strings.Join(c.Attrs, " ")
		}
		sb.WriteString(strings.TrimRight(line, " "))
		if i < len(cols)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")")
	return sb.String()
}

// ColumnDef is one rendered column line.
type ColumnDef struct {
	Name  string
	Type  string
	Attrs []string
}

// MissingPathsError is returned when a dialect needs resolved JSONPaths and none were given.
type MissingPathsError struct {
	Table   string
	Want    int
	Got     int
	Dialect string
}

func (e *MissingPathsError) Error() string {
	return fmt.Sprintf("%s: JSONPaths for %s must list one expression per column (want %d, got %d)",
		e.Dialect, e.Table, e.Want, e.Got)
}
