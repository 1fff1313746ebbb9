package commands

import (
	"fmt"

	"github.com/leapstack-labs/songplays/internal/cli/output"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/spf13/cobra"
)

// PlanOptions holds options for the plan command.
type PlanOptions struct {
	Stages      []string
	ShowSecrets bool
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	opts := &PlanOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the statements a run would execute",
		Long: `Render every statement for the configured target without connecting to it.

Credentials in bulk-load statements are masked unless --show-secrets is given.`,
		Example: `  # Show the full plan
  songplays plan

  # Show only the load and transform statements
  songplays plan --stage load,transform

  # Plan against DuckDB
  songplays plan --target-type duckdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Stages, "stage", nil, "Stages to include (reset,create,load,transform,check)")
	cmd.Flags().BoolVar(&opts.ShowSecrets, "show-secrets", false, "Print credentials in bulk-load statements")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	stages, err := core.ParseStages(opts.Stages)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	plan, err := eng.Plan(cmd.Context(), stages...)
	if err != nil {
		return err
	}

	sqlFor := func(s core.Statement) string {
		if opts.ShowSecrets {
			return s.SQL
		}
		return s.Display()
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := output.PlanOutput{Dialect: eng.Dialect().Name()}
		for _, sp := range plan.Stages {
			ps := output.PlanStageOutput{Stage: string(sp.Stage)}
			for _, s := range sp.Statements {
				ps.Statements = append(ps.Statements, output.PlanStatement{Name: s.Name, Table: s.Table, SQL: sqlFor(s)})
			}
			out.Stages = append(out.Stages, ps)
		}
		return r.JSON(out)

	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Plan (%s)", eng.Dialect().Name())))
		r.Println("")
		for _, sp := range plan.Stages {
			r.Println(output.FormatHeader(2, string(sp.Stage)))
			r.Println("")
			for _, s := range sp.Statements {
				r.Println(output.FormatHeader(3, s.Name))
				r.Println("")
				r.Println(output.FormatCodeBlock("sql", sqlFor(s)+";"))
				r.Println("")
			}
		}

	default:
		styles := r.Styles()
		for _, sp := range plan.Stages {
			r.Println(styles.Header2.Render("-- stage: " + string(sp.Stage)))
			for _, s := range sp.Statements {
				r.Println(styles.Muted.Render("-- " + s.Name))
				r.Println(sqlFor(s) + ";")
				r.Println("")
			}
		}
	}
	return nil
}
