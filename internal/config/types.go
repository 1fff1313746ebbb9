// Package config provides shared configuration types for songplays.
// This package is decoupled from CLI concerns: it holds the target and
// source settings and the legacy dwh.cfg format.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/adapter"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
)

// TargetConfig holds warehouse target configuration.
type TargetConfig = core.TargetConfig

// S3Config holds the storage locations the staging loads read from.
type S3Config struct {
	LogData     string `koanf:"log_data" yaml:"log_data"`
	LogJSONPath string `koanf:"log_jsonpath" yaml:"log_jsonpath"`
	SongData    string `koanf:"song_data" yaml:"song_data"`
	Region      string `koanf:"region" yaml:"region,omitempty"`

	// Client settings used to list sources and fetch the JSONPaths descriptor.
	Anonymous       bool   `koanf:"anonymous" yaml:"anonymous,omitempty"`
	AccessKeyID     string `koanf:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `koanf:"secret_access_key" yaml:"secret_access_key,omitempty"`
	Endpoint        string `koanf:"endpoint" yaml:"endpoint,omitempty"`
}

// Locations returns the configured source locations keyed by name.
// An "auto" descriptor is not a location and is left out.
func (s *S3Config) Locations() map[string]string {
	locs := map[string]string{
		"log_data":  s.LogData,
		"song_data": s.SongData,
	}
	if !strings.EqualFold(s.LogJSONPath, core.JSONPathsAuto) {
		locs["log_jsonpath"] = s.LogJSONPath
	}
	return locs
}

// IAMRoleConfig holds the role the warehouse assumes to read the sources.
type IAMRoleConfig struct {
	ARN string `koanf:"arn" yaml:"arn"`
}

// ClusterConfig is the [CLUSTER] section of dwh.cfg.
type ClusterConfig struct {
	Host       string `koanf:"host"`
	DBName     string `koanf:"db_name"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBPort     int    `koanf:"db_port"`
}

// FoldInto copies cluster settings into t where t leaves them unset.
func (c *ClusterConfig) FoldInto(t *TargetConfig) {
	if c == nil || t == nil {
		return
	}
	if t.Host == "" {
		t.Host = c.Host
	}
	if t.Database == "" {
		t.Database = c.DBName
	}
	if t.User == "" {
		t.User = c.DBUser
	}
	if t.Password == "" {
		t.Password = c.DBPassword
	}
	if t.Port == 0 {
		t.Port = c.DBPort
	}
}

// DWHConfig is the legacy dwh.cfg file.
type DWHConfig struct {
	Cluster *ClusterConfig `koanf:"cluster"`
	IAMRole IAMRoleConfig  `koanf:"iam_role"`
	S3      S3Config       `koanf:"s3"`
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "public".
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(strings.ToLower(dbType)); ok && d.DefaultSchema() != "" {
		return d.DefaultSchema()
	}
	return "public"
}

// ValidateTarget checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}

	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target port %d is out of range", t.Port)
	}

	return nil
}
