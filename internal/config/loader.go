package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "songplays.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "songplays.yml"

// DWHFileName is the name of the legacy INI config file.
const DWHFileName = "dwh.cfg"

// LoadDWH loads a legacy dwh.cfg file.
func LoadDWH(path string) (*DWHConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), INI()); err != nil {
		return nil, err
	}

	var cfg DWHConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindDWHConfig returns the dwh.cfg path in dir, or empty string if absent.
func FindDWHConfig(dir string) string {
	p := filepath.Join(dir, DWHFileName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
