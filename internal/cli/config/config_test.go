package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/songplays/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/songplays/pkg/adapters/redshift"
)

const dwhCfg = `[CLUSTER]
HOST=dwhcluster.abc123.us-west-2.redshift.amazonaws.com
DB_NAME=dwh
DB_USER=dwhuser
DB_PASSWORD=Passw0rd
DB_PORT=5439

[IAM_ROLE]
ARN='arn:aws:iam::123456789012:role/dwhRole'

[S3]
LOG_DATA='s3://udacity-dend/log_data'
LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
SONG_DATA='s3://udacity-dend/song_data'
`

const duckYAML = `target:
  type: duckdb
  database: ":memory:"
s3:
  log_data: data/log_data
  log_jsonpath: data/log_json_path.json
  song_data: data/song_data
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("dwh-config", "", "")
	flags.String("target-type", "", "")
	flags.String("database", "", "")
	flags.String("state", "", "")
	flags.String("env", "", "")
	flags.String("output", "", "")
	flags.String("log-format", "", "")
	flags.String("metrics-file", "", "")
	flags.Bool("verbose", false, "")
	flags.Bool("parallel-load", false, "")
	flags.Bool("preflight", false, "")
	flags.Int("limit", 5, "")
	return flags
}

func TestLoadConfig_DWHConfigOnly(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, dir, "dwh.cfg", dwhCfg)
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "redshift", cfg.Target.Type)
	assert.Equal(t, "dwhcluster.abc123.us-west-2.redshift.amazonaws.com", cfg.Target.Host)
	assert.Equal(t, "dwh", cfg.Target.Database)
	assert.Equal(t, "dwhuser", cfg.Target.User)
	assert.Equal(t, "Passw0rd", cfg.Target.Password)
	assert.Equal(t, 5439, cfg.Target.Port)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, "us-west-2", cfg.S3.Region)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.NotEmpty(t, GetDWHFileUsed())
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	load := cfg.LoadSettings()
	assert.Equal(t, "s3://udacity-dend/log_data", load.LogData)
	assert.Equal(t, "s3://udacity-dend/log_json_path.json", load.LogJSONPath)
	assert.Equal(t, "s3://udacity-dend/song_data", load.SongData)
	assert.Equal(t, "arn:aws:iam::123456789012:role/dwhRole", load.RoleARN)
	assert.Equal(t, "us-west-2", load.Region)
	assert.True(t, cfg.UsesS3())
}

func TestLoadConfig_YAMLOverridesDWH(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, dir, "dwh.cfg", dwhCfg)
	cfgPath := writeFile(t, dir, "songplays.yaml", `s3:
  region: us-east-1
target:
  port: 5440
load:
  parallel: true
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.Equal(t, 5440, cfg.Target.Port, "explicit target settings win over the cluster section")
	assert.Equal(t, "dwh", cfg.Target.Database)
	assert.True(t, cfg.Load.Parallel)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoadConfig_EnvPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, dir, "dwh.cfg", dwhCfg)
	cfgPath := writeFile(t, dir, "songplays.yaml", "environment: from_file\n")
	writeFile(t, dir, ".env", `SONGPLAYS_ENVIRONMENT=from_dotenv
SONGPLAYS_S3__REGION=eu-west-1
SONGPLAYS_IAM_ROLE__ARN=arn:aws:iam::210987654321:role/fromDotenv
`)
	t.Setenv("SONGPLAYS_ENVIRONMENT", "from_env")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Environment, "env var should override .env and config file")
	assert.Equal(t, "eu-west-1", cfg.S3.Region, ".env should override defaults")
	assert.Equal(t, "arn:aws:iam::210987654321:role/fromDotenv", cfg.IAMRole.ARN, ".env should override dwh.cfg")
	_, leaked := os.LookupEnv("SONGPLAYS_S3__REGION")
	assert.False(t, leaked, ".env values stay out of the process environment")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", duckYAML+"environment: from_file\n")
	t.Setenv("SONGPLAYS_ENVIRONMENT", "from_env")

	flags := newFlags()
	require.NoError(t, flags.Set("env", "from_flag"))
	require.NoError(t, flags.Set("parallel-load", "true"))
	require.NoError(t, flags.Set("output", "json"))
	require.NoError(t, flags.Set("limit", "1"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "from_flag", cfg.Environment, "flag value should override config file and env var")
	assert.True(t, cfg.Load.Parallel)
	assert.False(t, cfg.Load.Preflight)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", duckYAML)
	t.Setenv("SONGPLAYS_ENVIRONMENT", "from_env")

	cfg, err := LoadConfig(cfgPath, newFlags())
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.Environment, "env var should be used when flag is not set")
}

func TestLoadConfig_DWHConfigFlag(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	dwhPath := writeFile(t, dir, "prod.cfg", dwhCfg)
	cfgPath := writeFile(t, t.TempDir(), "songplays.yaml", "environment: prod\n")

	flags := newFlags()
	require.NoError(t, flags.Set("dwh-config", dwhPath))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, dwhPath, GetDWHFileUsed())
	assert.Equal(t, "dwh", cfg.Target.Database)
}

func TestLoadConfig_DuckDBTarget(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", duckYAML)
	writeFile(t, dir, "dwh.cfg", dwhCfg)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Database, "cluster section is not folded into duckdb targets")
	assert.Empty(t, cfg.Target.Host)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, filepath.Join(dir, "data/log_data"), cfg.S3.LogData)
	assert.Equal(t, filepath.Join(dir, "data/song_data"), cfg.S3.SongData)
	assert.Nil(t, cfg.Target.Params, "local sources need no secret")
	assert.False(t, cfg.UsesS3())
}

func TestLoadConfig_DuckDBFromS3GetsSecret(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeFile(t, dir, "dwh.cfg", dwhCfg)

	flags := newFlags()
	require.NoError(t, flags.Set("target-type", "duckdb"))
	require.NoError(t, flags.Set("database", ":memory:"))
	cfgPath := writeFile(t, dir, "songplays.yaml", "verbose: true\n")

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.Target.Database)
	assert.True(t, cfg.Verbose)
	require.Contains(t, cfg.Target.Params, "secrets")
}

func TestLoadConfig_PathFlagsResolveAgainstWorkingDir(t *testing.T) {
	ResetConfig()
	projectDir := t.TempDir()
	cfgPath := writeFile(t, projectDir, "songplays.yaml", duckYAML)

	workDir := t.TempDir()
	t.Chdir(workDir)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	flags := newFlags()
	require.NoError(t, flags.Set("state", "history.db"))
	require.NoError(t, flags.Set("metrics-file", "metrics/songplays.prom"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "history.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(cwd, "metrics/songplays.prom"), cfg.MetricsFile)
}

func TestLoadConfigWithTarget_Environments(t *testing.T) {
	cfgContent := duckYAML + `environments:
  staging:
    target:
      database: staging.duckdb
      schema: staging
  prod:
    target:
      type: redshift
      host: prod.example.com
      database: dwh
    iam_role:
      arn: arn:aws:iam::123456789012:role/prodRole
`
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", cfgContent)

	t.Run("base target", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithTarget(cfgPath, "", nil)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.Target.Database)
	})

	t.Run("staging override", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithTarget(cfgPath, "staging", nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "staging.duckdb"), cfg.Target.Database)
		assert.Equal(t, "staging", cfg.Target.Schema)
	})

	t.Run("prod override needs s3 sources", func(t *testing.T) {
		ResetConfig()
		_, err := LoadConfigWithTarget(cfgPath, "prod", nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, err.Error(), "s3.log_data must be an s3:// location for redshift targets")
	})

	t.Run("nonexistent environment falls back to base target", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithTarget(cfgPath, "nonexistent", nil)
		require.NoError(t, err)
		assert.Equal(t, "duckdb", cfg.Target.Type)
	})
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", `target:
  type: redshift
  host: ${TEST_DWH_HOST}
  database: dwh
  user: dwhuser
  password: ${TEST_DWH_PASSWORD}
iam_role:
  arn: arn:aws:iam::123456789012:role/dwhRole
s3:
  log_data: s3://bucket/log_data
  log_jsonpath: auto
  song_data: s3://bucket/song_data
`)
	writeFile(t, dir, ".env", "TEST_DWH_PASSWORD=from_dotenv\n")
	t.Setenv("TEST_DWH_HOST", "cluster.example.com")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "cluster.example.com", cfg.Target.Host)
	assert.Equal(t, "from_dotenv", cfg.Target.Password)
	assert.Equal(t, "auto", cfg.S3.LogJSONPath)
	assert.NotContains(t, cfg.S3.Locations(), "log_jsonpath")
}

func TestLoadConfig_ValidationFailsFast(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "songplays.yaml", `target:
  type: redshift
iam_role:
  arn: not-an-arn
s3:
  log_data: s3://bucket/log_data
output: yaml
`)

	_, err := LoadConfig(cfgPath, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{
		"s3.log_jsonpath is required",
		"s3.song_data is required",
		"target.host is required for redshift targets",
		"target.database is required for redshift targets",
		`iam_role.arn "not-an-arn" is not an IAM role ARN (arn:aws:iam::<account>:role/<name>)`,
		`output must be one of auto, text, markdown, json; got "yaml"`,
	}, verr.Problems)
	assert.Nil(t, GetCurrentConfig())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Target: &TargetConfig{Type: "redshift", Host: "h", Database: "dwh"},
			S3: S3Config{
				LogData:     "s3://bucket/log_data",
				LogJSONPath: "s3://bucket/log_json_path.json",
				SongData:    "s3://bucket/song_data",
				Region:      "us-west-2",
			},
			IAMRole: IAMRoleConfig{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid redshift", mutate: func(*Config) {}},
		{name: "govcloud arn", mutate: func(c *Config) { c.IAMRole.ARN = "arn:aws-us-gov:iam::123456789012:role/r" }},
		{name: "missing arn", mutate: func(c *Config) { c.IAMRole.ARN = "" }, errSubstr: "iam_role.arn is required"},
		{name: "short account", mutate: func(c *Config) { c.IAMRole.ARN = "arn:aws:iam::1234:role/r" }, errSubstr: "is not an IAM role ARN"},
		{name: "user arn", mutate: func(c *Config) { c.IAMRole.ARN = "arn:aws:iam::123456789012:user/u" }, errSubstr: "is not an IAM role ARN"},
		{name: "local source on redshift", mutate: func(c *Config) { c.S3.SongData = "/data/song" }, errSubstr: "s3.song_data must be an s3:// location"},
		{name: "bad scheme", mutate: func(c *Config) { c.S3.LogData = "gs://bucket/x" }, errSubstr: "unsupported location scheme"},
		{name: "missing region", mutate: func(c *Config) { c.S3.Region = "" }, errSubstr: "s3.region is required"},
		{name: "key without secret", mutate: func(c *Config) { c.S3.AccessKeyID = "AKIA" }, errSubstr: "s3.secret_access_key is required"},
		{name: "unknown target", mutate: func(c *Config) { c.Target.Type = "mysql" }, errSubstr: "unknown adapter type"},
		{name: "nil target", mutate: func(c *Config) { c.Target = nil }, errSubstr: "target type is required"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: "log_format must be text or json"},
		{
			name: "duckdb with local sources and no role",
			mutate: func(c *Config) {
				c.Target = &TargetConfig{Type: "duckdb", Database: ":memory:"}
				c.IAMRole.ARN = ""
				c.S3.LogData = "data/log"
				c.S3.LogJSONPath = "auto"
				c.S3.SongData = "file:///data/song"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")
	dotenv = map[string]string{"TEST_DOTENV": "from_dotenv", "TEST_VAR_ONE": "shadowed"}
	defer func() { dotenv = nil }()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "${TEST_VAR_ONE}", expected: "value_one"},
		{name: "multiple variables", input: "${TEST_VAR_ONE}/${TEST_VAR_TWO}", expected: "value_one/value_two"},
		{name: "dotenv fallback", input: "${TEST_DOTENV}", expected: "from_dotenv"},
		{name: "unset variable stays as-is", input: "${UNSET_VARIABLE}", expected: "${UNSET_VARIABLE}"},
		{name: "no variables", input: "plain string", expected: "plain string"},
		{name: "empty string", input: "", expected: ""},
		{name: "mixed set and unset", input: "${TEST_VAR_ONE}:${UNSET_VAR}", expected: "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "duckdb"}
		assert.Same(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "redshift"}
		assert.Same(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override wins field by field", func(t *testing.T) {
		base := &TargetConfig{
			Type:     "redshift",
			Host:     "base.example.com",
			Port:     5439,
			Database: "dwh",
			Options:  map[string]string{"sslmode": "require", "connect_timeout": "10"},
		}
		override := &TargetConfig{
			Host:    "prod.example.com",
			Options: map[string]string{"sslmode": "verify-full"},
			Params:  map[string]any{"threads": 4},
		}

		merged := MergeTargetConfig(base, override)
		assert.Equal(t, "redshift", merged.Type)
		assert.Equal(t, "prod.example.com", merged.Host)
		assert.Equal(t, 5439, merged.Port)
		assert.Equal(t, "dwh", merged.Database)
		assert.Equal(t, map[string]string{"sslmode": "verify-full", "connect_timeout": "10"}, merged.Options)
		assert.Equal(t, map[string]any{"threads": 4}, merged.Params)
		assert.Equal(t, "require", base.Options["sslmode"], "base is not mutated")
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "s3.log_data", envKey("SONGPLAYS_S3__LOG_DATA"))
	assert.Equal(t, "state_path", envKey("SONGPLAYS_STATE_PATH"))
	assert.Equal(t, "target.options.sslmode", envKey("SONGPLAYS_TARGET__OPTIONS__SSLMODE"))
}

func TestGetLogger_Fallback(t *testing.T) {
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), 0))
}
