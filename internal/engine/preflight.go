package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/songplays/internal/sources"
	"golang.org/x/sync/errgroup"
)

// SourceCheck is the outcome of listing one source location.
type SourceCheck struct {
	Source   string
	Location string
	Objects  []sources.Object
	// Err is set when the location could not be listed.
	Err error
}

func (e *Engine) sourceChecks() []SourceCheck {
	checks := []SourceCheck{
		{Source: "log_data", Location: e.load.LogData},
		{Source: "song_data", Location: e.load.SongData},
	}
	if !isAuto(e.load.LogJSONPath) {
		checks = append(checks, SourceCheck{Source: "log_jsonpath", Location: e.load.LogJSONPath})
	}
	return checks
}

// ListSources lists up to limit objects at each configured source location
// concurrently. Listing failures are reported per source.
func (e *Engine) ListSources(ctx context.Context, limit int) []SourceCheck {
	checks := e.sourceChecks()

	var g errgroup.Group
	for i := range checks {
		c := &checks[i]
		g.Go(func() error {
			c.Objects, c.Err = e.resolver.List(ctx, c.Location, limit)
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

// Preflight lists each configured source location concurrently and fails if
// any is unreachable or empty.
func (e *Engine) Preflight(ctx context.Context) ([]SourceCheck, error) {
	checks := e.sourceChecks()

	g, gctx := errgroup.WithContext(ctx)
	for i := range checks {
		c := &checks[i]
		g.Go(func() error {
			objs, err := e.resolver.List(gctx, c.Location, 1)
			if err != nil {
				return &SourceError{Source: c.Source, Location: c.Location, Err: err}
			}
			if len(objs) == 0 {
				return &SourceError{Source: c.Source, Location: c.Location, Err: fmt.Errorf("no objects found")}
			}
			c.Objects = objs
			e.logger.Debug("source reachable", slog.String("source", c.Source), slog.String("first", objs[0].Key))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return checks, nil
}
