package core

// TableKind classifies a table in the star schema.
type TableKind string

// Table kinds.
const (
	TableKindStaging   TableKind = "staging"
	TableKindDimension TableKind = "dimension"
	TableKindFact      TableKind = "fact"
)

// Reference is a declared foreign key to another table's column.
type Reference struct {
	Table  string
	Column string
}

// Column is a declared table column together with its physical hints.
type Column struct {
	Name string
	// Type is the warehouse type as written in DDL, e.g. VARCHAR(250).
	Type       string
	NotNull    bool
	Identity   bool
	PrimaryKey bool
	SortKey    bool
	DistKey    bool
	References *Reference
}

// Table is a declared table.
type Table struct {
	Name    string
	Kind    TableKind
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the primary key column name, or "" for tables without one.
func (t *Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// References returns the distinct tables this table references, in column order.
func (t *Table) References() []string {
	var refs []string
	seen := make(map[string]bool)
	for _, c := range t.Columns {
		if c.References == nil || seen[c.References.Table] {
			continue
		}
		seen[c.References.Table] = true
		refs = append(refs, c.References.Table)
	}
	return refs
}
