package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/internal/cli/output"
	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/spf13/cobra"
)

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the table and transform dependency graphs",
		Long: `Display the two dependency graphs that order the pipeline.

Tables are grouped by create level: a table is created after every table it
references and dropped before them. Transforms are grouped by insert level:
a transform runs after every transform it reads from.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graphs
  songplays dag

  # Output as JSON
  songplays dag --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd, schema.Default())
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command, catalog *schema.Catalog) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer
	out := buildDAGOutput(catalog)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		dagMarkdown(r, out)
	default:
		dagText(r, out)
	}
	return nil
}

func buildDAGOutput(catalog *schema.Catalog) output.DAGOutput {
	var out output.DAGOutput

	for i, level := range catalog.TableLevels() {
		dl := output.DAGLevel{Level: i}
		for _, name := range level {
			node := output.DAGNode{Name: name, UsedBy: catalog.ReferencedBy(name)}
			if t, ok := catalog.Table(name); ok {
				node.DependsOn = t.References()
				node.Detail = string(t.Kind)
			}
			dl.Nodes = append(dl.Nodes, node)
		}
		out.Tables = append(out.Tables, dl)
	}

	transforms := make(map[string]schema.Transform)
	for _, tr := range catalog.TransformOrder() {
		transforms[tr.Table] = tr
	}
	for i, level := range catalog.TransformLevels() {
		dl := output.DAGLevel{Level: i}
		for _, name := range level {
			tr := transforms[name]
			dl.Nodes = append(dl.Nodes, output.DAGNode{
				Name:      name,
				DependsOn: tr.DependsOn,
				UsedBy:    catalog.DownstreamTransforms(name),
				Detail:    tr.TieBreak,
			})
		}
		out.Transforms = append(out.Transforms, dl)
	}

	return out
}

// dagText outputs the graphs in styled text format.
func dagText(r *output.Renderer, out output.DAGOutput) {
	styles := r.Styles()

	section := func(title, dependsLabel, usedLabel string, levels []output.DAGLevel) {
		r.Header(1, title)
		for _, level := range levels {
			r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", level.Level)))
			for _, node := range level.Nodes {
				r.Printf("  %s\n", styles.TableName.Render(node.Name))
				if len(node.DependsOn) > 0 {
					r.Printf("    %s %s\n", styles.Muted.Render(dependsLabel), strings.Join(node.DependsOn, ", "))
				}
				if len(node.UsedBy) > 0 {
					r.Printf("    %s %s\n", styles.Muted.Render(usedLabel), strings.Join(node.UsedBy, ", "))
				}
			}
			r.Println("")
		}
	}

	section("Tables", "references:", "referenced by:", out.Tables)
	section("Transforms", "after:", "downstream:", out.Transforms)
}

// dagMarkdown outputs the graphs in markdown format.
func dagMarkdown(r *output.Renderer, out output.DAGOutput) {
	section := func(title, dependsLabel, usedLabel, detailLabel string, levels []output.DAGLevel) {
		r.Println(output.FormatHeader(1, title))
		r.Println("")
		for _, level := range levels {
			r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", level.Level)))
			for _, node := range level.Nodes {
				r.Printf("- %s\n", node.Name)
				if len(node.DependsOn) > 0 {
					r.Printf("  - %s %s\n", dependsLabel, strings.Join(node.DependsOn, ", "))
				}
				if len(node.UsedBy) > 0 {
					r.Printf("  - %s %s\n", usedLabel, strings.Join(node.UsedBy, ", "))
				}
				if node.Detail != "" {
					r.Printf("  - %s %s\n", detailLabel, node.Detail)
				}
			}
			r.Println("")
		}
	}

	section("Tables", "references:", "referenced by:", "kind:", out.Tables)
	section("Transforms", "after:", "downstream:", "keeps:", out.Transforms)
}
