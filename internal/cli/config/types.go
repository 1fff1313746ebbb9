// Package config provides configuration management for the songplays CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields and functionality. The shared types are
// re-exported here via type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/songplays/internal/config"
	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/internal/sources"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// S3Config is an alias for the shared source configuration.
type S3Config = sharedcfg.S3Config

// IAMRoleConfig is an alias for the shared role configuration.
type IAMRoleConfig = sharedcfg.IAMRoleConfig

// ClusterConfig is an alias for the legacy dwh.cfg cluster section.
type ClusterConfig = sharedcfg.ClusterConfig

// LoadOptions controls how the load stage runs.
type LoadOptions struct {
	// Parallel runs the two bulk loads concurrently.
	Parallel bool `koanf:"parallel" yaml:"parallel"`
	// Preflight lists every source location before loading.
	Preflight bool `koanf:"preflight" yaml:"preflight"`
}

// Config holds all CLI configuration options.
type Config struct {
	Target       *TargetConfig        `koanf:"target"`
	Cluster      *ClusterConfig       `koanf:"cluster"`
	S3           S3Config             `koanf:"s3"`
	IAMRole      IAMRoleConfig        `koanf:"iam_role"`
	Load         LoadOptions          `koanf:"load"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	MetricsFile  string               `koanf:"metrics_file"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	LogFormat    string               `koanf:"log_format"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target  *TargetConfig  `koanf:"target"`
	IAMRole *IAMRoleConfig `koanf:"iam_role"`
}

// Default configuration values.
const (
	DefaultStateFile = ".songplays/state.db"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogFormat = "text"

	// EnvPrefix prefixes environment variables; "__" separates nested keys.
	EnvPrefix = "SONGPLAYS_"
)

// LoadSettings returns the staging load settings.
func (c *Config) LoadSettings() schema.LoadConfig {
	return schema.LoadConfig{
		LogData:     c.S3.LogData,
		LogJSONPath: c.S3.LogJSONPath,
		SongData:    c.S3.SongData,
		RoleARN:     c.IAMRole.ARN,
		Region:      c.S3.Region,
	}
}

// SourceS3 returns the S3 client settings for listing and reading sources.
func (c *Config) SourceS3() sources.S3Config {
	return sources.S3Config{
		Region:          c.S3.Region,
		Anonymous:       c.S3.Anonymous,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		Endpoint:        c.S3.Endpoint,
	}
}

// UsesS3 reports whether any configured source lives in S3.
func (c *Config) UsesS3() bool {
	for _, raw := range c.S3.Locations() {
		if loc, err := sources.ParseLocation(raw); err == nil && loc.IsS3() {
			return true
		}
	}
	return false
}
