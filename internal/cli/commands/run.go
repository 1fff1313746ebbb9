package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leapstack-labs/songplays/internal/cli/output"
	"github.com/leapstack-labs/songplays/internal/engine"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	SkipCheck bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Run every stage in order: reset, create, load, transform, check.

reset drops all seven tables, create recreates them, load bulk-copies the
event log and song catalog into the staging tables, transform fills the
dimension and fact tables, and check prints one row of table counts.

The first failing statement stops the run; later statements are recorded
as skipped in the run history.`,
		Example: `  # Run the whole pipeline
  songplays run

  # Load both staging tables concurrently after checking the sources exist
  songplays run --parallel-load --preflight

  # Run against a local DuckDB file
  songplays run --target-type duckdb --database warehouse.duckdb`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stages := core.AllStages
			if opts.SkipCheck {
				stages = stages[:len(stages)-1]
			}
			return runStages(cmd, stages)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipCheck, "skip-check", false, "Skip the row-count check stage")
	addLoadFlags(cmd)

	return cmd
}

// NewStageCommand creates a command that runs a single stage.
func NewStageCommand(stage core.Stage, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(stage),
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStages(cmd, []core.Stage{stage})
		},
	}
	if stage == core.StageLoad {
		addLoadFlags(cmd)
	}
	return cmd
}

// NewStageCommands creates the reset, create, load, transform and check commands.
func NewStageCommands() []*cobra.Command {
	return []*cobra.Command{
		NewStageCommand(core.StageReset, "Drop all tables",
			"Drop the staging, dimension and fact tables if they exist. Safe to repeat."),
		NewStageCommand(core.StageCreate, "Create all tables",
			"Create the staging, dimension and fact tables in dependency order.\nFails if a table already exists; run reset first."),
		NewStageCommand(core.StageLoad, "Bulk-load the staging tables",
			"Copy the event log and song catalog from storage into the staging tables."),
		NewStageCommand(core.StageTransform, "Populate the dimension and fact tables",
			"Insert into users, songs, artists, songplays and time from the staging tables,\nin dependency order."),
		NewStageCommand(core.StageCheck, "Print row counts for every table",
			"Count the rows of all seven tables in a single-row summary."),
	}
}

func addLoadFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("parallel-load", false, "Run the two bulk loads concurrently")
	cmd.Flags().Bool("preflight", false, "List every source location before loading")
}

func runStages(cmd *cobra.Command, stages []core.Stage) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	start := time.Now()

	res, runErr := eng.Run(cmd.Context(), stages...)

	if path := cmdCtx.Cfg.MetricsFile; path != "" && res != nil {
		if err := eng.Metrics().WriteTextfile(path); err != nil {
			cmdCtx.Logger.Warn("failed to write metrics", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	if res == nil {
		return runErr
	}

	var renderErr error
	switch r.EffectiveMode() {
	case output.ModeJSON:
		renderErr = r.JSON(runOutput(res, true))
	case output.ModeMarkdown:
		renderRunMarkdown(r, res)
	default:
		renderRunText(r, res, time.Since(start))
	}

	return errors.Join(runErr, renderErr)
}

// onlyCheck reports whether the run consisted of the check stage alone.
func onlyCheck(run *core.Run) bool {
	return len(run.Stages) == 1 && run.Stages[0] == core.StageCheck
}

func renderRunText(r *output.Renderer, res *engine.Result, elapsed time.Duration) {
	styles := r.Styles()

	if res.Counts != nil && onlyCheck(res.Run) {
		renderCounts(r, res.Counts)
		return
	}

	r.Header(1, fmt.Sprintf("Run %s", shortID(res.Run.ID)))
	var current core.Stage
	for _, sr := range res.Statements {
		if sr.Stage != current {
			current = sr.Stage
			r.Println(styles.Header2.Render(string(current)))
		}
		r.StatusLine(sr.Name, string(sr.Status), statementDetail(sr))
		if sr.Error != "" {
			r.Println("    " + styles.Error.Render(sr.Error))
		}
	}
	r.Println("")

	if res.Counts != nil {
		renderCounts(r, res.Counts)
		r.Println("")
	}

	summary := fmt.Sprintf("%s in %s", res.Run.Status, elapsed.Round(time.Millisecond))
	if res.Run.Status == core.RunStatusCompleted {
		r.Success(summary)
	} else {
		r.Println(styles.Error.Render("✗ " + summary))
	}
}

func renderRunMarkdown(r *output.Renderer, res *engine.Result) {
	if res.Counts != nil && onlyCheck(res.Run) {
		renderCounts(r, res.Counts)
		return
	}

	r.Println(output.FormatHeader(1, "Run "+res.Run.ID))
	r.Println("")
	r.Println(output.FormatKeyValue("Status", string(res.Run.Status)))
	r.Println(output.FormatKeyValue("Environment", res.Run.Environment))
	r.Println(output.FormatKeyValue("Target", res.Run.Target))
	if res.Run.Error != "" {
		r.Println(output.FormatKeyValue("Error", res.Run.Error))
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Statements"))
	r.Println("")
	r.Table(statementHeader, statementRows(res.Statements))

	if res.Counts != nil {
		r.Println(output.FormatHeader(2, "Row counts"))
		r.Println("")
		renderCounts(r, res.Counts)
	}
}

// renderCounts prints the single-row count summary: one column per table.
func renderCounts(r *output.Renderer, counts *core.RowCounts) {
	header := make([]string, len(counts.Counts))
	row := make([]string, len(counts.Counts))
	for i, c := range counts.Counts {
		header[i] = c.Table
		row[i] = strconv.FormatInt(c.Rows, 10)
	}
	r.Table(header, [][]string{row})
}

var statementHeader = []string{"#", "stage", "statement", "status", "rows", "ms"}

func statementRows(srs []*core.StatementRun) [][]string {
	rows := make([][]string, 0, len(srs))
	for _, sr := range srs {
		rows = append(rows, []string{
			strconv.Itoa(sr.Ordinal),
			string(sr.Stage),
			sr.Name,
			string(sr.Status),
			rowsAffected(sr),
			strconv.FormatInt(sr.ExecutionMS, 10),
		})
	}
	return rows
}

func rowsAffected(sr *core.StatementRun) string {
	if sr.Status != core.StatementRunStatusSuccess || sr.RowsAffected < 0 {
		return ""
	}
	return strconv.FormatInt(sr.RowsAffected, 10)
}

func statementDetail(sr *core.StatementRun) string {
	if sr.Status != core.StatementRunStatusSuccess && sr.Status != core.StatementRunStatusFailed {
		return ""
	}
	if n := rowsAffected(sr); n != "" && sr.Stage != core.StageReset && sr.Stage != core.StageCreate {
		return fmt.Sprintf("(%s rows, %dms)", n, sr.ExecutionMS)
	}
	return fmt.Sprintf("(%dms)", sr.ExecutionMS)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runOutput(res *engine.Result, withStatements bool) output.RunOutput {
	run := res.Run
	out := output.RunOutput{
		ID:          run.ID,
		Environment: run.Environment,
		Target:      run.Target,
		Stages:      stageNames(run.Stages),
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
	if run.CompletedAt != nil {
		out.DurationMS = run.CompletedAt.Sub(run.StartedAt).Milliseconds()
	}
	if withStatements {
		for _, sr := range res.Statements {
			out.Statements = append(out.Statements, output.StatementOutput{
				Ordinal:      sr.Ordinal,
				Stage:        string(sr.Stage),
				Name:         sr.Name,
				Table:        sr.Table,
				Status:       string(sr.Status),
				RowsAffected: sr.RowsAffected,
				ExecutionMS:  sr.ExecutionMS,
				Error:        sr.Error,
			})
		}
	}
	if res.Counts != nil {
		for _, c := range res.Counts.Counts {
			out.Counts = append(out.Counts, output.TableCount{Table: c.Table, Rows: c.Rows})
		}
	}
	return out
}

func stageNames(stages []core.Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return names
}
