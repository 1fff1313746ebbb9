package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/pkg/core"
)

// Queries renders every statement group for the target dialect.
//
// Dialects that project columns themselves need the event JSONPaths
// descriptor; it is fetched only when stages include load, since the copy
// statements are otherwise never executed.
func (e *Engine) Queries(ctx context.Context, stages []core.Stage) (*schema.Queries, error) {
	cfg := e.load
	if e.dialect.ResolvesJSONPaths() && len(cfg.EventPaths) == 0 && !isAuto(cfg.LogJSONPath) {
		if slices.Contains(stages, core.StageLoad) {
			paths, err := e.resolver.ResolveJSONPaths(ctx, cfg.LogJSONPath)
			if err != nil {
				return nil, &SourceError{Source: "log_jsonpath", Location: cfg.LogJSONPath, Err: err}
			}
			e.logger.Debug("resolved event JSONPaths", "location", cfg.LogJSONPath, "paths", len(paths))
			cfg.EventPaths = paths
		} else {
			cfg.LogJSONPath = core.JSONPathsAuto
		}
	}

	q, err := e.catalog.Queries(e.dialect, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render statements: %w", err)
	}
	return q, nil
}

// Plan renders the statements the given stages would execute, without
// connecting to the warehouse. No stages means all of them.
func (e *Engine) Plan(ctx context.Context, stages ...core.Stage) (*core.Plan, error) {
	if len(stages) == 0 {
		stages = core.AllStages
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	q, err := e.Queries(ctx, stages)
	if err != nil {
		return nil, err
	}
	return q.Plan(stages...), nil
}

func isAuto(jsonPaths string) bool {
	return jsonPaths == "" || strings.EqualFold(jsonPaths, core.JSONPathsAuto)
}
