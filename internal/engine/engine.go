// Package engine runs the pipeline: it renders the statement groups for the
// target dialect, executes the requested stages in order and records every
// statement in the state store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/leapstack-labs/songplays/internal/metrics"
	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/leapstack-labs/songplays/internal/state"
	"github.com/leapstack-labs/songplays/pkg/adapter"
	"github.com/leapstack-labs/songplays/pkg/dialect"
)

// Engine orchestrates pipeline runs against one target.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Dialect for the target type, resolved without connecting
	dialect dialect.Dialect

	logger   *slog.Logger
	store    state.Store
	metrics  *metrics.Metrics
	clock    clockwork.Clock
	catalog  *schema.Catalog
	resolver *sources.Resolver

	environment  string
	targetLabel  string
	load         schema.LoadConfig
	parallelLoad bool
	preflight    bool
}

// Config holds engine configuration.
type Config struct {
	// AdapterConfig is the target connection.
	AdapterConfig adapter.Config
	// TargetLabel is the credential-free target description recorded on runs.
	TargetLabel string
	// Load carries the source locations and role for the staging loads.
	Load schema.LoadConfig
	// StatePath is the SQLite run history path. Ignored when Store is set.
	StatePath string
	// Environment labels runs (dev, prod, ...).
	Environment string

	// ParallelLoad runs the bulk loads concurrently.
	ParallelLoad bool
	// Preflight lists every source location before the load stage.
	Preflight bool

	// Optional collaborators; defaults are used when nil.
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	Catalog  *schema.Catalog
	Resolver *sources.Resolver
	Store    state.Store
	Adapter  adapter.Adapter
}

// New creates an engine. The warehouse is connected on first use.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dialectName := cfg.AdapterConfig.Type
	if cfg.Adapter != nil {
		dialectName = cfg.Adapter.DialectName()
	}
	d, err := dialect.MustGet(dialectName)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	store := cfg.Store
	if store == nil {
		sqlite := state.NewSQLiteStore(logger, state.WithClock(clock))
		if err := sqlite.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		store = sqlite
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.New("")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = schema.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = sources.NewResolver(nil)
	}
	env := cfg.Environment
	if env == "" {
		env = "dev"
	}

	logger.Debug("initializing engine",
		slog.String("environment", env),
		slog.String("dialect", d.Name()),
		slog.String("target", cfg.TargetLabel))

	return &Engine{
		db:           cfg.Adapter,
		dbConfig:     cfg.AdapterConfig,
		dialect:      d,
		logger:       logger,
		store:        store,
		metrics:      m,
		clock:        clock,
		catalog:      catalog,
		resolver:     resolver,
		environment:  env,
		targetLabel:  cfg.TargetLabel,
		load:         cfg.Load,
		parallelLoad: cfg.ParallelLoad,
		preflight:    cfg.Preflight,
	}, nil
}

// ensureDBConnected lazily connects to the warehouse.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	if e.db == nil {
		e.logger.Debug("connecting to warehouse", slog.String("adapter_type", e.dbConfig.Type))
		db, err := adapter.NewAdapter(e.dbConfig, e.logger)
		if err != nil {
			return fmt.Errorf("failed to create database adapter: %w", err)
		}
		e.db = db
	}

	if err := e.db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	e.dbConnected = true

	e.logger.Debug("warehouse connected", slog.String("dialect", e.db.DialectName()))
	return nil
}

// Close releases the warehouse connection and the state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing engine: %w", err)
	}
	return nil
}

// --- Getters (public accessors) ---

// Catalog returns the table catalog.
func (e *Engine) Catalog() *schema.Catalog { return e.catalog }

// Dialect returns the target dialect.
func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Store returns the run history store.
func (e *Engine) Store() state.Store { return e.store }

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }
