// Package redshift renders pipeline statements for Amazon Redshift.
// This package is pure Go with no database driver dependencies.
package redshift

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
)

func init() {
	dialect.Register(Redshift)
}

// Redshift is the Redshift dialect.
var Redshift = &Dialect{}

// Dialect implements dialect.Dialect for Redshift.
type Dialect struct{}

// Name implements dialect.Dialect.
func (*Dialect) Name() string { return "redshift" }

// DefaultSchema implements dialect.Dialect.
func (*Dialect) DefaultSchema() string { return "public" }

// ResolvesJSONPaths is false: COPY reads the descriptor from S3 itself.
func (*Dialect) ResolvesJSONPaths() bool { return false }

// CreateTable renders CREATE TABLE with distribution, sort and key hints.
// Column attributes precede column constraints.
func (*Dialect) CreateTable(t *core.Table) []string {
	cols := make([]dialect.ColumnDef, 0, len(t.Columns))
	for _, c := range t.Columns {
		var attrs []string
		if c.Identity {
			attrs = append(attrs, "IDENTITY(0,1)")
		}
		if c.DistKey {
			attrs = append(attrs, "DISTKEY")
		}
		if c.SortKey {
			attrs = append(attrs, "SORTKEY")
		}
		if c.NotNull {
			attrs = append(attrs, "NOT NULL")
		}
		if c.PrimaryKey {
			attrs = append(attrs, "PRIMARY KEY")
		}
		if c.References != nil {
			attrs = append(attrs, fmt.Sprintf("REFERENCES %s (%s)", c.References.Table, c.References.Column))
		}
		cols = append(cols, dialect.ColumnDef{Name: c.Name, Type: c.Type, Attrs: attrs})
	}
	return []string{dialect.FormatCreate(t.Name, cols)}
}

// DropTable implements dialect.Dialect.
func (*Dialect) DropTable(t *core.Table) []string {
	return []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)}
}

// CopyJSON renders a COPY from S3 authenticated by an IAM role.
func (*Dialect) CopyJSON(spec core.CopySpec) (dialect.Copy, error) {
	if spec.Table == nil {
		return dialect.Copy{}, fmt.Errorf("copy: table is required")
	}
	if spec.Source == "" {
		return dialect.Copy{}, fmt.Errorf("copy %s: source location is required", spec.Table.Name)
	}
	if spec.RoleARN == "" {
		return dialect.Copy{}, fmt.Errorf("copy %s: IAM role ARN is required", spec.Table.Name)
	}
	if spec.Region == "" {
		return dialect.Copy{}, fmt.Errorf("copy %s: region is required", spec.Table.Name)
	}

	jsonPaths := spec.JSONPaths
	if jsonPaths == "" {
		jsonPaths = core.JSONPathsAuto
	}

	render := func(role string) string {
		lines := []string{
			fmt.Sprintf("copy %s from %s", spec.Table.Name, dialect.QuoteString(spec.Source)),
			fmt.Sprintf("credentials %s", dialect.QuoteString("aws_iam_role="+role)),
			fmt.Sprintf("region %s format as JSON %s", dialect.QuoteString(spec.Region), dialect.QuoteString(jsonPaths)),
		}
		if spec.TimeFormat != "" {
			lines = append(lines, fmt.Sprintf("timeformat as %s", dialect.QuoteString(spec.TimeFormat)))
		}
		return strings.Join(lines, "\n")
	}

	return dialect.Copy{SQL: render(spec.RoleARN), Redacted: render(maskARN(spec.RoleARN))}, nil
}

// maskARN keeps the partition and role name and hides the account.
func maskARN(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 {
		return "****"
	}
	parts[4] = "************"
	return strings.Join(parts, ":")
}

// DatePart implements dialect.Dialect.
func (*Dialect) DatePart(part dialect.DatePart, expr string) string {
	return fmt.Sprintf("EXTRACT(%s FROM %s)", part, expr)
}

var _ dialect.Dialect = (*Dialect)(nil)
