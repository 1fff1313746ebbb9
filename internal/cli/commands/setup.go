package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/songplays/internal/cli/config"
	"github.com/leapstack-labs/songplays/internal/cli/output"
	intconfig "github.com/leapstack-labs/songplays/internal/config"
	"github.com/leapstack-labs/songplays/internal/engine"
	"github.com/leapstack-labs/songplays/internal/metrics"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/spf13/cobra"
)

// BuildVersion is reported in the build info metric. Set by the root command.
var BuildVersion = "dev"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't touch the warehouse.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	if f := cmd.Flags().Lookup("output"); f != nil && f.Changed {
		mode = output.Mode(f.Value.String())
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		StatePath:    getEnvOrDefault(config.EnvPrefix+"STATE_PATH", config.DefaultStateFile),
		Environment:  getEnvOrDefault(config.EnvPrefix+"ENVIRONMENT", config.DefaultEnv),
		OutputFormat: getEnvOrDefault(config.EnvPrefix+"OUTPUT", config.DefaultOutput),
		S3:           config.S3Config{Region: intconfig.DefaultRegion},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// newResolver builds a source resolver. An S3 client is created only when a
// source lives in S3.
func newResolver(ctx context.Context, cfg *config.Config) (*sources.Resolver, error) {
	if !cfg.UsesS3() {
		return sources.NewResolver(nil), nil
	}
	s3Store, err := sources.NewS3StoreFromConfig(ctx, cfg.SourceS3())
	if err != nil {
		return nil, err
	}
	return sources.NewResolver(s3Store), nil
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if cfg.Target == nil {
		return nil, fmt.Errorf("no target configured")
	}

	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		AdapterConfig: cfg.Target.AdapterConfig(),
		TargetLabel:   cfg.Target.String(),
		Load:          cfg.LoadSettings(),
		StatePath:     cfg.StatePath,
		Environment:   cfg.Environment,
		ParallelLoad:  cfg.Load.Parallel,
		Preflight:     cfg.Load.Preflight,
		Logger:        logger,
		Metrics:       metrics.New(BuildVersion),
		Resolver:      resolver,
	}

	return engine.New(engineCfg)
}
