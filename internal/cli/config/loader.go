package config

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/songplays/internal/config"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps CLI flags to config keys. Flags not listed are not config.
var flagKeys = map[string]string{
	"target-type":   "target.type",
	"database":      "target.database",
	"state":         "state_path",
	"env":           "environment",
	"output":        "output",
	"verbose":       "verbose",
	"log-format":    "log_format",
	"metrics-file":  "metrics_file",
	"parallel-load": "load.parallel",
	"preflight":     "load.preflight",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = []string{"state", "database", "metrics-file"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	dwhFileUsed    string
	dotenv         map[string]string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// configExistsIn checks if a songplays.yaml or dwh.cfg exists in the directory.
func configExistsIn(dir string) bool {
	return intconfig.FindConfigFile(dir) != "" || intconfig.FindDWHConfig(dir) != ""
}

// findProjectRootUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Search upward from CWD for songplays.yaml or dwh.cfg
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(cfgFile)
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, already absolute, in-memory, or a URI.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	if strings.EqualFold(path, "auto") {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey turns SONGPLAYS_S3__LOG_DATA into s3.log_data.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	dwhFileUsed = ""
	dotenv = nil
	currentConfig = nil
}

// LoadConfig loads configuration from files, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > .env > songplays.yaml > dwh.cfg > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional environment override.
// The targetOverride parameter specifies which environment's target to use.
// The configuration is validated before it is returned.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := loadConfig(cfgFile, targetOverride, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = cfg
	return cfg, nil
}

// LoadConfigUnvalidated loads configuration without validating it.
// Used by commands that never connect to the warehouse.
func LoadConfigUnvalidated(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := loadConfig(cfgFile, "", flags)
	if err != nil {
		return nil, err
	}
	currentConfig = cfg
	return cfg, nil
}

func loadConfig(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	dotenv = nil

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to the working directory.
	flagPaths := make(map[string]string)
	if flags != nil {
		for _, name := range pathFlags {
			f := flags.Lookup(name)
			if f == nil || !f.Changed || f.Value.String() == "" {
				continue
			}
			v := f.Value.String()
			if v != ":memory:" {
				if abs, err := filepath.Abs(v); err == nil {
					v = abs
				}
			}
			flagPaths[name] = v
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"target.type":  intconfig.DefaultTargetType,
		"s3.region":    intconfig.DefaultRegion,
		"state_path":   DefaultStateFile,
		"environment":  DefaultEnv,
		"verbose":      false,
		"output":       DefaultOutput,
		"log_format":   DefaultLogFormat,
		"metrics_file": "",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Legacy dwh.cfg
	dwhFile := ""
	if flags != nil {
		if f := flags.Lookup("dwh-config"); f != nil && f.Changed {
			dwhFile = f.Value.String()
		}
	}
	if dwhFile == "" {
		dwhFile = intconfig.FindDWHConfig(projectRoot)
	}
	dwhFileUsed = dwhFile
	if dwhFileUsed != "" {
		if err := k.Load(file.Provider(dwhFileUsed), intconfig.INI()); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", dwhFileUsed, err)
		}
	}

	// 3. songplays.yaml
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 4. .env in the project root. Values do not leak into the process environment.
	envFile := filepath.Join(projectRoot, ".env")
	if _, err := os.Stat(envFile); err == nil {
		vals, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", envFile, err)
		}
		dotenv = vals

		prefixed := make(map[string]interface{})
		for name, v := range vals {
			if strings.HasPrefix(name, EnvPrefix) {
				prefixed[envKey(name)] = v
			}
		}
		if err := k.Load(confmap.Provider(prefixed, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// 5. Environment variables (SONGPLAYS_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 6. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 7. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	envForTarget := cfg.Environment
	if targetOverride != "" {
		envForTarget = targetOverride
	}
	if envCfg, ok := cfg.Environments[envForTarget]; ok {
		if envCfg.Target != nil {
			cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
		}
		if envCfg.IAMRole != nil && envCfg.IAMRole.ARN != "" {
			cfg.IAMRole.ARN = envCfg.IAMRole.ARN
		}
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	if cfg.Target.Type == "" || strings.EqualFold(cfg.Target.Type, "redshift") {
		cfg.Cluster.FoldInto(cfg.Target)
	}

	expandTargetEnvVars(cfg.Target)
	cfg.IAMRole.ARN = expandEnvVars(cfg.IAMRole.ARN)
	cfg.S3.AccessKeyID = expandEnvVars(cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = expandEnvVars(cfg.S3.SecretAccessKey)

	// Apply defaults based on target type
	intconfig.ApplyTargetDefaults(cfg.Target)

	// Resolve relative paths
	if v, ok := flagPaths["state"]; ok {
		cfg.StatePath = v
	} else {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}
	if v, ok := flagPaths["metrics-file"]; ok {
		cfg.MetricsFile = v
	} else {
		cfg.MetricsFile = resolvePathRelativeTo(cfg.MetricsFile, projectRoot)
	}
	if cfg.Target.Type == "duckdb" {
		if v, ok := flagPaths["database"]; ok {
			cfg.Target.Database = v
		} else {
			cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, projectRoot)
		}
	}
	cfg.S3.LogData = resolvePathRelativeTo(cfg.S3.LogData, projectRoot)
	cfg.S3.LogJSONPath = resolvePathRelativeTo(cfg.S3.LogJSONPath, projectRoot)
	cfg.S3.SongData = resolvePathRelativeTo(cfg.S3.SongData, projectRoot)

	intconfig.ApplySourceDefaults(cfg.Target, &cfg.S3)

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetDWHFileUsed returns the path to the dwh.cfg file being used, if any.
func GetDWHFileUsed() string {
	return dwhFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns from the environment, then from .env.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		if val := dotenv[varName]; val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig overlays the non-zero fields of override on base.
// Options and Params are merged key by key.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, base.Params)
	maps.Copy(merged.Params, override.Params)

	merged.Type = cmp.Or(override.Type, merged.Type)
	merged.Database = cmp.Or(override.Database, merged.Database)
	merged.Host = cmp.Or(override.Host, merged.Host)
	merged.Port = cmp.Or(override.Port, merged.Port)
	merged.User = cmp.Or(override.User, merged.User)
	merged.Password = cmp.Or(override.Password, merged.Password)
	merged.Schema = cmp.Or(override.Schema, merged.Schema)
	return &merged
}
