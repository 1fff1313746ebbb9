package schema

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/songplays/internal/dag"
	"github.com/leapstack-labs/songplays/pkg/core"
)

// Catalog is a validated set of tables and transforms with their dependency graphs.
type Catalog struct {
	tables     []*core.Table
	byName     map[string]*core.Table
	tableGraph *dag.Graph[*core.Table]

	transforms     []Transform
	transformGraph *dag.Graph[Transform]
}

// Default returns the songplays catalog.
func Default() *Catalog {
	c, err := NewCatalog(Tables(), Transforms())
	if err != nil {
		// The built-in declarations are fixed; failing here is a programming error.
		panic(err)
	}
	return c
}

// NewCatalog validates tables and transforms and builds their graphs.
// A reference edge runs from the referenced table to the referencing one.
func NewCatalog(tables []*core.Table, transforms []Transform) (*Catalog, error) {
	c := &Catalog{
		tables:         tables,
		byName:         make(map[string]*core.Table, len(tables)),
		tableGraph:     dag.NewGraph[*core.Table](),
		transforms:     transforms,
		transformGraph: dag.NewGraph[Transform](),
	}

	for _, t := range tables {
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("table %s declared twice", t.Name)
		}
		c.byName[t.Name] = t
		c.tableGraph.AddNode(t.Name, t)
	}
	for _, t := range tables {
		for _, col := range t.Columns {
			if col.References == nil {
				continue
			}
			target, ok := c.byName[col.References.Table]
			if !ok {
				return nil, fmt.Errorf("%s.%s references unknown table %s", t.Name, col.Name, col.References.Table)
			}
			if _, ok := target.Column(col.References.Column); !ok {
				return nil, fmt.Errorf("%s.%s references unknown column %s.%s",
					t.Name, col.Name, col.References.Table, col.References.Column)
			}
			if err := c.tableGraph.AddEdge(target.Name, t.Name); err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name, err)
			}
		}
	}
	if hasCycle, path := c.tableGraph.HasCycle(); hasCycle {
		return nil, fmt.Errorf("table references form a cycle: %v", path)
	}

	for _, tr := range transforms {
		if _, ok := c.byName[tr.Table]; !ok {
			return nil, fmt.Errorf("transform targets unknown table %s", tr.Table)
		}
		if _, dup := c.transformGraph.Node(tr.Table); dup {
			return nil, fmt.Errorf("table %s has two transforms", tr.Table)
		}
		for _, src := range tr.Sources {
			if _, ok := c.byName[src]; !ok {
				return nil, fmt.Errorf("transform %s reads unknown table %s", tr.Table, src)
			}
		}
		c.transformGraph.AddNode(tr.Table, tr)
	}
	for _, tr := range transforms {
		for _, dep := range tr.DependsOn {
			if _, ok := c.transformGraph.Node(dep); !ok {
				return nil, fmt.Errorf("transform %s depends on %s, which has no transform", tr.Table, dep)
			}
			if err := c.transformGraph.AddEdge(dep, tr.Table); err != nil {
				return nil, fmt.Errorf("transform %s: %w", tr.Table, err)
			}
		}
	}
	if hasCycle, path := c.transformGraph.HasCycle(); hasCycle {
		return nil, fmt.Errorf("transform dependencies form a cycle: %v", path)
	}

	return c, nil
}

// Tables returns the tables in declaration order.
func (c *Catalog) Tables() []*core.Table {
	return slices.Clone(c.tables)
}

// Table looks up a table by name.
func (c *Catalog) Table(name string) (*core.Table, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// StagingTables returns the staging tables in declaration order.
func (c *Catalog) StagingTables() []*core.Table {
	var out []*core.Table
	for _, t := range c.tables {
		if t.Kind == core.TableKindStaging {
			out = append(out, t)
		}
	}
	return out
}

// CreateOrder returns tables with every referenced table before the tables referencing it.
func (c *Catalog) CreateOrder() []*core.Table {
	nodes, _ := c.tableGraph.TopologicalSort() // acyclic, checked in NewCatalog
	out := make([]*core.Table, len(nodes))
	for i, n := range nodes {
		out[i] = n.Data
	}
	return out
}

// DropOrder is the reverse of CreateOrder.
func (c *Catalog) DropOrder() []*core.Table {
	out := c.CreateOrder()
	slices.Reverse(out)
	return out
}

// TransformOrder returns transforms with every dependency first.
func (c *Catalog) TransformOrder() []Transform {
	nodes, _ := c.transformGraph.TopologicalSort() // acyclic, checked in NewCatalog
	out := make([]Transform, len(nodes))
	for i, n := range nodes {
		out[i] = n.Data
	}
	return out
}

// TableLevels groups table names by create level.
func (c *Catalog) TableLevels() [][]string {
	levels, _ := c.tableGraph.ExecutionLevels()
	return levels
}

// TransformLevels groups transform tables by insert level.
func (c *Catalog) TransformLevels() [][]string {
	levels, _ := c.transformGraph.ExecutionLevels()
	return levels
}

// ReferencedBy returns the tables holding a reference to name.
func (c *Catalog) ReferencedBy(name string) []string {
	return c.tableGraph.Children(name)
}

// DownstreamTransforms returns the transforms that must rerun after name's, in order.
func (c *Catalog) DownstreamTransforms(name string) []string {
	return c.transformGraph.Downstream(name)
}
