package schema

import (
	"fmt"

	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
)

// Queries holds the five ordered statement groups.
type Queries struct {
	Drop   []core.Statement
	Create []core.Statement
	Copy   []core.Statement
	Insert []core.Statement
	Check  []core.Statement
}

// Queries renders every statement group for a dialect.
func (c *Catalog) Queries(d dialect.Dialect, cfg LoadConfig) (*Queries, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	q := &Queries{}

	for _, t := range c.DropOrder() {
		q.Drop = append(q.Drop, named(core.StageReset, "drop", t.Name, d.DropTable(t))...)
	}
	for _, t := range c.CreateOrder() {
		q.Create = append(q.Create, named(core.StageCreate, "create", t.Name, d.CreateTable(t))...)
	}

	for _, spec := range Loads(cfg) {
		cp, err := d.CopyJSON(spec)
		if err != nil {
			return nil, err
		}
		stmt := core.Statement{
			Stage: core.StageLoad,
			Name:  "copy_" + spec.Table.Name,
			Table: spec.Table.Name,
			SQL:   cp.SQL,
		}
		if cp.Redacted != cp.SQL {
			stmt.Redacted = cp.Redacted
		}
		q.Copy = append(q.Copy, stmt)
	}

	for _, tr := range c.TransformOrder() {
		q.Insert = append(q.Insert, core.Statement{
			Stage: core.StageTransform,
			Name:  "insert_" + tr.Table,
			Table: tr.Table,
			SQL:   tr.Render(d),
		})
	}

	q.Check = []core.Statement{{
		Stage: core.StageCheck,
		Name:  "row_counts",
		SQL:   RowCountQuery(c.tables),
	}}

	return q, nil
}

func named(stage core.Stage, verb, table string, sqls []string) []core.Statement {
	out := make([]core.Statement, len(sqls))
	for i, s := range sqls {
		name := verb + "_" + table
		if i > 0 {
			name = fmt.Sprintf("%s_%d", name, i+1)
		}
		out[i] = core.Statement{Stage: stage, Name: name, Table: table, SQL: s}
	}
	return out
}

// Stage returns the statements of one stage.
func (q *Queries) Stage(s core.Stage) []core.Statement {
	switch s {
	case core.StageReset:
		return q.Drop
	case core.StageCreate:
		return q.Create
	case core.StageLoad:
		return q.Copy
	case core.StageTransform:
		return q.Insert
	case core.StageCheck:
		return q.Check
	}
	return nil
}

// Plan assembles the given stages, in the order given.
func (q *Queries) Plan(stages ...core.Stage) *core.Plan {
	p := &core.Plan{}
	for _, s := range stages {
		p.Stages = append(p.Stages, core.StagePlan{Stage: s, Statements: q.Stage(s)})
	}
	return p
}
