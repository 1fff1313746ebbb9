package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/songplays/internal/cli/output"
	"github.com/leapstack-labs/songplays/internal/engine"
	"github.com/leapstack-labs/songplays/internal/state"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id|latest]",
		Short: "Show past runs",
		Long: `List recorded runs, newest first, or show one run in detail.

A run ID may be abbreviated to any unique prefix. "latest" selects the most
recent run in the current environment.`,
		Example: `  # List recent runs
  songplays history

  # Show one run with its statements and row counts
  songplays history 3f2a9c1d

  # Show the latest run as JSON
  songplays history latest -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)

			store := state.NewSQLiteStore(cmdCtx.Logger)
			if err := store.Open(cmdCtx.Cfg.StatePath); err != nil {
				return fmt.Errorf("failed to open state store: %w", err)
			}
			defer func() { _ = store.Close() }()

			if len(args) == 0 {
				return listRuns(cmdCtx.Renderer, store, limit)
			}
			return showRun(cmdCtx.Renderer, store, args[0], cmdCtx.Cfg.Environment)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}

func listRuns(r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]output.RunOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, runOutput(&engine.Result{Run: run}, false))
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Environment,
			strings.Join(stageNames(run.Stages), ","),
			string(run.Status),
			runDuration(run),
		})
	}
	r.Table([]string{"run", "started", "env", "stages", "status", "duration"}, rows)
	return nil
}

func showRun(r *output.Renderer, store state.Store, ref, env string) error {
	var run *core.Run
	var err error
	if ref == "latest" {
		run, err = store.GetLatestRun(env)
		if err == nil && run == nil {
			return fmt.Errorf("no runs recorded for environment %q", env)
		}
	} else {
		run, err = store.GetRun(ref)
	}
	if err != nil {
		return err
	}

	statements, err := store.GetStatementRuns(run.ID)
	if err != nil {
		return err
	}
	counts, err := store.GetRowCounts(run.ID)
	if err != nil {
		return err
	}
	res := &engine.Result{Run: run, Statements: statements, Counts: counts}

	if r.EffectiveMode() == output.ModeJSON {
		out := runOutput(res, true)
		for i, sr := range statements {
			out.Statements[i].SQL = sr.SQL
		}
		return r.JSON(out)
	}

	r.Header(1, "Run "+run.ID)
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Environment", run.Environment))
	r.Println(output.FormatKeyValue("Target", run.Target))
	r.Println(output.FormatKeyValue("Stages", strings.Join(stageNames(run.Stages), ", ")))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.RFC3339)))
	r.Println(output.FormatKeyValue("Duration", runDuration(run)))
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	if len(statements) > 0 {
		r.Header(2, "Statements")
		r.Table(statementHeader, statementRows(statements))
		r.Println("")
	}
	if counts != nil {
		r.Header(2, "Row counts")
		renderCounts(r, counts)
	}
	return nil
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "running"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
