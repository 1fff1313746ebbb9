// Package sources reads the object-storage locations the pipeline loads from.
//
// It lists objects for preflight checks and the sources command, and fetches
// JSONPaths descriptors for dialects that project JSON columns themselves.
package sources

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme identifies the storage backing a location.
type Scheme string

// Supported schemes.
const (
	SchemeS3   Scheme = "s3"
	SchemeFile Scheme = "file"
)

// Location is a parsed storage location.
type Location struct {
	Scheme Scheme
	// Bucket is set for S3 locations.
	Bucket string
	// Key is the object key or key prefix for S3, or the filesystem path for files.
	Key string
}

// ParseLocation parses s3://bucket/prefix, file:///path and plain filesystem paths.
// Surrounding quotes, as written in INI files, are stripped.
func ParseLocation(raw string) (Location, error) {
	s := strings.Trim(strings.TrimSpace(raw), `'"`)
	if s == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	if !strings.Contains(s, "://") {
		return Location{Scheme: SchemeFile, Key: filepath.Clean(s)}, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3", "s3a":
		if u.Host == "" {
			return Location{}, fmt.Errorf("invalid location %q: missing bucket", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
	case "file":
		if u.Path == "" {
			return Location{}, fmt.Errorf("invalid location %q: missing path", raw)
		}
		return Location{Scheme: SchemeFile, Key: filepath.Clean(u.Path)}, nil
	default:
		return Location{}, fmt.Errorf("unsupported location scheme %q in %q (use s3:// or a file path)", u.Scheme, raw)
	}
}

// String renders the location as a URI.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Key
	default:
		return l.Key
	}
}

// IsS3 reports whether the location is in S3.
func (l Location) IsS3() bool {
	return l.Scheme == SchemeS3
}
