package engine

// run.go - Execution orchestration for pipeline stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a run.
type Result struct {
	Run        *core.Run
	Statements []*core.StatementRun
	// Counts is set when the check stage ran.
	Counts *core.RowCounts
}

// Run executes the given stages in canonical order; no stages means all.
// Statements run one at a time except bulk loads when parallel loading is
// enabled. The first failure stops the run and every statement not yet
// executed is recorded as skipped. Nothing is retried.
func (e *Engine) Run(ctx context.Context, stages ...core.Stage) (*Result, error) {
	if len(stages) == 0 {
		stages = core.AllStages
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}

	e.logger.Info("starting run", slog.String("environment", e.environment), slog.Any("stages", stages))

	// Render everything before touching the warehouse.
	q, err := e.Queries(ctx, stages)
	if err != nil {
		return nil, err
	}
	plan := q.Plan(stages...)

	if e.preflight && slices.Contains(stages, core.StageLoad) {
		if _, err := e.Preflight(ctx); err != nil {
			return nil, err
		}
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	run, err := e.store.CreateRun(e.environment, e.targetLabel, stages)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	e.logger.Debug("created run", slog.String("run_id", run.ID))
	started := e.clock.Now()

	res := &Result{Run: run, Statements: e.recordPending(run.ID, plan)}
	runErr := e.execute(ctx, plan, res)

	status := core.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = core.RunStatusFailed
		errMsg = runErr.Error()
		e.logger.Error("run failed", slog.String("run_id", run.ID), slog.String("error", errMsg))
	} else {
		e.logger.Info("run completed", slog.String("run_id", run.ID), slog.Duration("duration", e.clock.Since(started)))
	}
	if err := e.store.CompleteRun(run.ID, status, errMsg); err != nil {
		e.logger.Warn("failed to complete run record", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
	e.metrics.ObserveRun(status, e.clock.Since(started), e.clock.Now())

	if stored, err := e.store.GetRun(run.ID); err == nil {
		res.Run = stored
	}
	return res, runErr
}

// recordPending records every planned statement as pending, in plan order.
func (e *Engine) recordPending(runID string, plan *core.Plan) []*core.StatementRun {
	stmts := plan.Statements()
	out := make([]*core.StatementRun, len(stmts))
	for i, s := range stmts {
		sr := &core.StatementRun{
			RunID:   runID,
			Stage:   s.Stage,
			Ordinal: i + 1,
			Name:    s.Name,
			Table:   s.Table,
			SQL:     s.Display(),
			Status:  core.StatementRunStatusPending,
		}
		e.record(sr)
		out[i] = sr
	}
	return out
}

func (e *Engine) execute(ctx context.Context, plan *core.Plan, res *Result) error {
	offset := 0
	for _, sp := range plan.Stages {
		srs := res.Statements[offset : offset+len(sp.Statements)]
		offset += len(sp.Statements)

		e.logger.Info("running stage", slog.String("stage", string(sp.Stage)), slog.Int("statements", len(sp.Statements)))

		var err error
		switch {
		case sp.Stage == core.StageCheck:
			res.Counts, err = e.runCheck(ctx, sp.Statements, srs)
		case sp.Stage == core.StageLoad && e.parallelLoad && len(sp.Statements) > 1:
			err = e.runParallel(ctx, sp.Statements, srs)
		default:
			err = e.runSequential(ctx, sp.Statements, srs)
		}
		if err != nil {
			e.skipPending(res.Statements)
			return err
		}
	}
	return nil
}

func (e *Engine) runSequential(ctx context.Context, stmts []core.Statement, srs []*core.StatementRun) error {
	for i, stmt := range stmts {
		if err := e.runStatement(ctx, stmt, srs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, stmts []core.Statement, srs []*core.StatementRun) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range stmts {
		g.Go(func() error {
			return e.runStatement(gctx, stmts[i], srs[i])
		})
	}
	return g.Wait()
}

func (e *Engine) runStatement(ctx context.Context, stmt core.Statement, sr *core.StatementRun) error {
	start := e.begin(stmt, sr)

	n, err := e.db.Exec(ctx, stmt.SQL)
	e.finish(stmt, sr, start, n, err)
	if err != nil {
		return &StatementError{Stage: stmt.Stage, Statement: stmt.Name, Table: stmt.Table, Err: err}
	}
	return nil
}

// runCheck runs the row-count query. Missing tables are reported by name
// rather than as an engine error about an unknown relation.
func (e *Engine) runCheck(ctx context.Context, stmts []core.Statement, srs []*core.StatementRun) (*core.RowCounts, error) {
	tables := e.catalog.RowCountTables()

	var counts *core.RowCounts
	for i, stmt := range stmts {
		start := e.begin(stmt, srs[i])

		rc, err := e.countRows(ctx, stmt, tables)
		var n int64
		if rc != nil {
			n = rc.Total()
		}
		e.finish(stmt, srs[i], start, n, err)
		if err != nil {
			return nil, &StatementError{Stage: stmt.Stage, Statement: stmt.Name, Table: stmt.Table, Err: err}
		}
		counts = rc
	}

	if counts != nil {
		if err := e.store.SaveRowCounts(srs[0].RunID, counts); err != nil {
			e.logger.Warn("failed to save row counts", slog.String("error", err.Error()))
		}
		e.metrics.SetRowCounts(counts)
		e.warnEmptyTables(counts)
	}
	return counts, nil
}

func (e *Engine) countRows(ctx context.Context, stmt core.Statement, tables []*core.Table) (*core.RowCounts, error) {
	var missing []string
	for _, t := range tables {
		ok, err := e.db.TableExists(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, t.Name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("tables do not exist: %s (run create first)", strings.Join(missing, ", "))
	}

	rows, err := e.db.Query(ctx, stmt.SQL)
	if err != nil {
		return nil, err
	}
	return schema.ReadRowCounts(rows, tables)
}

// warnEmptyTables flags transforms that produced nothing from non-empty
// sources. An empty join yields no rows rather than an error.
func (e *Engine) warnEmptyTables(counts *core.RowCounts) {
	for _, tr := range e.catalog.TransformOrder() {
		n, ok := counts.Get(tr.Table)
		if !ok || n > 0 {
			continue
		}
		fed := len(tr.Sources) > 0
		for _, src := range tr.Sources {
			if c, ok := counts.Get(src); !ok || c == 0 {
				fed = false
			}
		}
		if fed {
			e.logger.Warn("table is empty although its sources have rows",
				slog.String("table", tr.Table), slog.Any("sources", tr.Sources))
		}
	}
}

func (e *Engine) begin(stmt core.Statement, sr *core.StatementRun) time.Time {
	start := e.clock.Now()
	sr.Status = core.StatementRunStatusRunning
	sr.StartedAt = &start
	e.record(sr)

	e.logger.Info("executing statement", slog.String("stage", string(stmt.Stage)), slog.String("statement", stmt.Name))
	e.logger.Debug("statement sql", slog.String("sql", stmt.Display()))
	return start
}

func (e *Engine) finish(stmt core.Statement, sr *core.StatementRun, start time.Time, rows int64, err error) {
	end := e.clock.Now()
	elapsed := end.Sub(start)
	sr.CompletedAt = &end
	sr.ExecutionMS = elapsed.Milliseconds()
	sr.RowsAffected = rows

	if err != nil {
		sr.Status = core.StatementRunStatusFailed
		sr.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			sr.Error = "canceled: " + sr.Error
		}
	} else {
		sr.Status = core.StatementRunStatusSuccess
	}
	e.record(sr)
	e.metrics.ObserveStatement(stmt, sr.Status, rows, elapsed)

	e.logger.Debug("statement finished",
		slog.String("statement", stmt.Name),
		slog.String("status", string(sr.Status)),
		slog.Int64("rows", rows),
		slog.Duration("duration", elapsed))
}

func (e *Engine) skipPending(srs []*core.StatementRun) {
	for _, sr := range srs {
		if sr.Status != core.StatementRunStatusPending {
			continue
		}
		sr.Status = core.StatementRunStatusSkipped
		sr.Error = "skipped: an earlier statement failed"
		e.record(sr)
		e.metrics.ObserveStatement(core.Statement{Stage: sr.Stage, Name: sr.Name, Table: sr.Table}, sr.Status, 0, 0)
	}
}

// record persists a statement run. History is best effort and never fails a run.
func (e *Engine) record(sr *core.StatementRun) {
	if err := e.store.RecordStatement(sr); err != nil {
		e.logger.Warn("failed to record statement", slog.String("statement", sr.Name), slog.String("error", err.Error()))
	}
}
