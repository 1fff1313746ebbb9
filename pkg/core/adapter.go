package core

import (
	"database/sql"
	"fmt"
)

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// String renders the config without the password.
func (c AdapterConfig) String() string {
	if c.Host == "" {
		return fmt.Sprintf("%s:%s", c.Type, c.Path)
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s", c.Type, c.Username, c.Host, c.Port, c.Database)
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
