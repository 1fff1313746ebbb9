package sources

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// jsonPathsFile is the descriptor layout: {"jsonpaths": ["$['a']", ...]}.
type jsonPathsFile struct {
	JSONPaths []string `json:"jsonpaths"`
}

// ParseJSONPaths reads a JSONPaths descriptor and returns its expressions in
// canonical dot form, e.g. $['userId'] becomes $.userId.
func ParseJSONPaths(data []byte) ([]string, error) {
	var f jsonPathsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid JSONPaths descriptor: %w", err)
	}
	if len(f.JSONPaths) == 0 {
		return nil, fmt.Errorf("JSONPaths descriptor lists no expressions")
	}

	out := make([]string, len(f.JSONPaths))
	for i, expr := range f.JSONPaths {
		p, err := CanonicalPath(expr)
		if err != nil {
			return nil, fmt.Errorf("jsonpaths[%d]: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

var simpleKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CanonicalPath rewrites a JSONPath in bracket or dot notation to dot
// notation. Keys that are not plain identifiers are double-quoted.
// Only the member and array-index steps allowed in Redshift JSONPaths are accepted.
func CanonicalPath(expr string) (string, error) {
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return "", fmt.Errorf("path %q must start with $", expr)
	}
	s = s[1:]

	var sb strings.Builder
	sb.WriteString("$")
	steps := 0
	for len(s) > 0 {
		switch s[0] {
		case '.':
			end := strings.IndexAny(s[1:], ".[")
			if end < 0 {
				end = len(s) - 1
			}
			key := s[1 : end+1]
			if key == "" {
				return "", fmt.Errorf("path %q has an empty member", expr)
			}
			writeKey(&sb, key)
			s = s[end+1:]
		case '[':
			closeIdx := strings.IndexByte(s, ']')
			if closeIdx < 0 {
				return "", fmt.Errorf("path %q has an unclosed bracket", expr)
			}
			inner := strings.TrimSpace(s[1:closeIdx])
			switch {
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
				writeKey(&sb, inner[1:len(inner)-1])
			default:
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return "", fmt.Errorf("path %q: unsupported step [%s]", expr, inner)
				}
				fmt.Fprintf(&sb, "[%d]", idx)
			}
			s = s[closeIdx+1:]
		default:
			return "", fmt.Errorf("path %q: unexpected %q", expr, s[0])
		}
		steps++
	}
	if steps == 0 {
		return "", fmt.Errorf("path %q selects the whole object", expr)
	}
	return sb.String(), nil
}

func writeKey(sb *strings.Builder, key string) {
	if simpleKey.MatchString(key) {
		sb.WriteString("." + key)
		return
	}
	sb.WriteString(`."` + strings.ReplaceAll(key, `"`, `\"`) + `"`)
}

// EncodeJSONPaths renders expressions as a descriptor document.
func EncodeJSONPaths(paths []string) ([]byte, error) {
	return json.MarshalIndent(jsonPathsFile{JSONPaths: paths}, "", "    ")
}
