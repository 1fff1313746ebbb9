package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-ini/ini"
)

// INIParser is a koanf parser for dwh.cfg style INI files. Section and key
// names are lowercased and surrounding quotes are stripped from values, so
// [S3] LOG_DATA='s3://bucket/log_data' becomes s3.log_data.
type INIParser struct{}

// INI returns an INI parser.
func INI() *INIParser {
	return &INIParser{}
}

// Unmarshal parses INI bytes into a nested map, one level per section.
func (p *INIParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ini: %w", err)
	}

	out := make(map[string]interface{})
	for _, sec := range f.Sections() {
		keys := sec.Keys()
		if len(keys) == 0 {
			continue
		}
		values := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			values[strings.ToLower(key.Name())] = unquote(key.String())
		}
		name := strings.ToLower(sec.Name())
		if name == strings.ToLower(ini.DefaultSection) {
			for k, v := range values {
				out[k] = v
			}
			continue
		}
		out[name] = values
	}
	return out, nil
}

// Marshal renders a nested map as INI. Top-level scalars go to the default
// section; nested maps become upper-cased sections.
func (p *INIParser) Marshal(m map[string]interface{}) ([]byte, error) {
	f := ini.Empty()

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch v := m[name].(type) {
		case map[string]interface{}:
			sec, err := f.NewSection(strings.ToUpper(name))
			if err != nil {
				return nil, err
			}
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if _, err := sec.NewKey(strings.ToUpper(key), fmt.Sprint(v[key])); err != nil {
					return nil, err
				}
			}
		default:
			if _, err := f.Section("").NewKey(strings.ToUpper(name), fmt.Sprint(v)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
