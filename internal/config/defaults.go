package config

import (
	"strings"

	"github.com/leapstack-labs/songplays/internal/sources"
)

// Default configuration values.
const (
	DefaultTargetType   = "redshift"
	DefaultRedshiftPort = 5439
	DefaultDuckDBPath   = ".songplays/warehouse.duckdb"
	DefaultRegion       = "us-west-2"
)

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "redshift":
		if t.Port == 0 {
			t.Port = DefaultRedshiftPort
		}
	case "duckdb":
		if t.Database == "" {
			t.Database = DefaultDuckDBPath
		}
	}
}

// ApplySourceDefaults gives a DuckDB target an S3 secret built from the
// source settings when it reads from S3 and declares no secrets itself.
func ApplySourceDefaults(t *TargetConfig, s *S3Config) {
	if t == nil || s == nil || t.Type != "duckdb" {
		return
	}
	if _, ok := t.Params["secrets"]; ok {
		return
	}
	if !readsS3(s) {
		return
	}

	secret := map[string]any{
		"type":   "s3",
		"region": s.Region,
	}
	switch {
	case s.AccessKeyID != "":
		secret["provider"] = "config"
		secret["key_id"] = s.AccessKeyID
		secret["secret"] = s.SecretAccessKey
	case s.Anonymous:
		secret["provider"] = "config"
	default:
		secret["provider"] = "credential_chain"
	}
	if s.Endpoint != "" {
		secret["endpoint"] = strings.TrimPrefix(strings.TrimPrefix(s.Endpoint, "https://"), "http://")
		secret["url_style"] = "path"
		if strings.HasPrefix(s.Endpoint, "http://") {
			secret["use_ssl"] = false
		}
	}

	if t.Params == nil {
		t.Params = make(map[string]any)
	}
	t.Params["secrets"] = []any{secret}
}

func readsS3(s *S3Config) bool {
	for _, raw := range s.Locations() {
		if loc, err := sources.ParseLocation(raw); err == nil && loc.IsS3() {
			return true
		}
	}
	return false
}
