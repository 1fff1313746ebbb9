package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/core"
)

// RowCountQuery returns a single-row query with one COUNT(*) column per
// table, named after the table.
func RowCountQuery(tables []*core.Table) string {
	cols := make([]string, len(tables))
	for i, t := range tables {
		cols[i] = fmt.Sprintf("(SELECT COUNT(*) FROM %s) AS %s", t.Name, t.Name)
	}
	return "SELECT " + strings.Join(cols, ",\n       ")
}

// ReadRowCounts scans the single row returned by RowCountQuery.
func ReadRowCounts(rows *core.Rows, tables []*core.Table) (*core.RowCounts, error) {
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read row counts: %w", err)
		}
		return nil, fmt.Errorf("row count query returned no rows")
	}

	counts := make([]int64, len(tables))
	dest := make([]any, len(tables))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan row counts: %w", err)
	}

	rc := &core.RowCounts{Counts: make([]core.TableCount, len(tables))}
	for i, t := range tables {
		rc.Counts[i] = core.TableCount{Table: t.Name, Rows: counts[i]}
	}
	return rc, rows.Err()
}

// RowCountTables returns the tables RowCountQuery covers for the catalog.
func (c *Catalog) RowCountTables() []*core.Table {
	return c.Tables()
}
