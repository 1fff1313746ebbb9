package config

import (
	"fmt"
	"regexp"
	"strings"

	intconfig "github.com/leapstack-labs/songplays/internal/config"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/leapstack-labs/songplays/pkg/core"
)

var roleARNPattern = regexp.MustCompile(`^arn:aws[-a-z]*:iam::\d{12}:role/.+$`)

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// DefaultSchemaForType returns the default schema for a database type.
// This is a convenience wrapper that delegates to the shared config function.
func DefaultSchemaForType(dbType string) string {
	return intconfig.DefaultSchemaForType(dbType)
}

// Validate checks the configuration before anything connects.
// It returns a *ValidationError listing every problem, or nil.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := intconfig.ValidateTarget(c.Target); err != nil {
		add("%v", err)
	}
	redshift := c.Target != nil && strings.EqualFold(c.Target.Type, "redshift")

	checkLocation := func(key, raw string, allowAuto bool) {
		if raw == "" {
			add("s3.%s is required", key)
			return
		}
		if allowAuto && strings.EqualFold(raw, core.JSONPathsAuto) {
			return
		}
		loc, err := sources.ParseLocation(raw)
		if err != nil {
			add("s3.%s: %v", key, err)
			return
		}
		if redshift && !loc.IsS3() {
			add("s3.%s must be an s3:// location for redshift targets, got %q", key, raw)
		}
	}
	checkLocation("log_data", c.S3.LogData, false)
	checkLocation("log_jsonpath", c.S3.LogJSONPath, true)
	checkLocation("song_data", c.S3.SongData, false)

	if c.S3.Region == "" {
		add("s3.region is required")
	}
	if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
		add("s3.secret_access_key is required with s3.access_key_id")
	}

	if redshift {
		if c.Target.Host == "" {
			add("target.host is required for redshift targets")
		}
		if c.Target.Database == "" {
			add("target.database is required for redshift targets")
		}
		switch {
		case c.IAMRole.ARN == "":
			add("iam_role.arn is required for redshift targets")
		case !roleARNPattern.MatchString(c.IAMRole.ARN):
			add("iam_role.arn %q is not an IAM role ARN (arn:aws:iam::<account>:role/<name>)", c.IAMRole.ARN)
		}
	}

	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		add("output must be one of auto, text, markdown, json; got %q", c.OutputFormat)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		add("log_format must be text or json; got %q", c.LogFormat)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
