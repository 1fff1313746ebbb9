// Package cli provides the command-line interface for songplays.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/leapstack-labs/songplays/internal/cli/commands"
	"github.com/leapstack-labs/songplays/internal/cli/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	// Warehouse adapters register themselves on import.
	_ "github.com/leapstack-labs/songplays/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/songplays/pkg/adapters/redshift"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// noConfigCommands run without loading configuration.
var noConfigCommands = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"version":    true,
	"init":       true,
}

// offlineCommands load configuration but never connect to the warehouse,
// so an incomplete target is not an error.
var offlineCommands = map[string]bool{
	"dag":     true,
	"history": true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	commands.BuildVersion = Version

	rootCmd := &cobra.Command{
		Use:   "songplays",
		Short: "songplays - star-schema loader for song play analytics",
		Long: `songplays builds a star schema for song play analysis on Amazon Redshift,
or on a local DuckDB file.

It bulk-loads the JSON event log and song catalog into staging tables, then
fills the users, songs, artists and time dimensions and the songplays fact
table. Every run is recorded in a local history database.

Configuration is read from songplays.yaml, a legacy dwh.cfg, .env,
SONGPLAYS_* environment variables and flags, in increasing precedence.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noConfigCommands[cmd.Name()] {
				verbose, _ := cmd.Flags().GetBool("verbose")
				format, _ := cmd.Flags().GetString("log-format")
				setLogger(cmd, newLogger(cmd.ErrOrStderr(), verbose, format))
				return nil
			}

			load := config.LoadConfig
			if offlineCommands[cmd.Name()] {
				load = config.LoadConfigUnvalidated
			}
			cfg, err := load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
			setLogger(cmd, logger)

			if f := config.GetDWHFileUsed(); f != "" {
				logger.Debug("using legacy config", slog.String("path", f))
			}
			if f := config.GetConfigFileUsed(); f != "" {
				logger.Debug("using config file", slog.String("path", f))
			}
			logger.Debug("target selected",
				slog.String("target", cfg.Target.String()),
				slog.String("environment", cfg.Environment))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Star-schema loader for Redshift and DuckDB
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./songplays.yaml)")
	rootCmd.PersistentFlags().String("dwh-config", "", "Legacy INI config (default: ./dwh.cfg)")
	rootCmd.PersistentFlags().String("target-type", "", "Warehouse type (redshift|duckdb)")
	rootCmd.PersistentFlags().String("database", "", "Database name, or DuckDB file path")
	rootCmd.PersistentFlags().String("state", "", "Path to run history database")
	rootCmd.PersistentFlags().String("env", "", "Environment name")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"redshift", "duckdb"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("env", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewStageCommands()...)
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewDAGCommand())
	rootCmd.AddCommand(commands.NewSourcesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func setLogger(cmd *cobra.Command, logger *slog.Logger) {
	cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))
}

// newLogger builds the stderr logger. Text logs are colored on a terminal.
func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for songplays.

To load completions:

Bash:
  $ source <(songplays completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ songplays completion bash > /etc/bash_completion.d/songplays
  # macOS:
  $ songplays completion bash > $(brew --prefix)/etc/bash_completion.d/songplays

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ songplays completion zsh > "${fpath[1]}/_songplays"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ songplays completion fish | source
  
  # To load completions for each session, execute once:
  $ songplays completion fish > ~/.config/fish/completions/songplays.fish

PowerShell:
  PS> songplays completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> songplays completion powershell > songplays.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
