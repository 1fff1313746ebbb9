package core

import "fmt"

// TargetConfig holds warehouse target configuration.
type TargetConfig struct {
	Type string `koanf:"type" yaml:"type"` // redshift, duckdb

	// File-based databases (DuckDB): file path or ":memory:"
	Database string `koanf:"database" yaml:"database"`

	// Network databases
	Host     string `koanf:"host" yaml:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port,omitempty"`
	User     string `koanf:"user" yaml:"user,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty"`

	Schema string `koanf:"schema" yaml:"schema,omitempty"`

	// Additional driver-specific options (e.g. sslmode)
	Options map[string]string `koanf:"options" yaml:"options,omitempty"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, secrets, settings)
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// String describes the target with the password masked.
func (t *TargetConfig) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Host == "" {
		return fmt.Sprintf("%s(%s)", t.Type, t.Database)
	}
	return fmt.Sprintf("%s(%s@%s:%d/%s)", t.Type, t.User, t.Host, t.Port, t.Database)
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}
