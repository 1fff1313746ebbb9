package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/songplays/internal/cli/config"
	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func executeInit(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewInitCommand()
	cmd.Flags().String("target-type", "", "")
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			wantFiles: []string{"songplays.yaml"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "songplays.yaml"), []byte("existing"), 0o600))
			},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "songplays.yaml"), []byte("existing"), 0o600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"songplays.yaml"},
		},
		{
			name: "init duckdb project",
			args: []string{"--target-type", "duckdb"},
			wantFiles: []string{
				"songplays.yaml",
				"log_json_path.json",
				"data/log_data",
				"data/song_data",
			},
		},
		{
			name:    "init unknown target type",
			args:    []string{"--target-type", "mysql"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, dir)
			}

			err := executeInit(t, append([]string{dir}, tt.args...)...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, "%s should exist", f)
			}
		})
	}
}

func TestInitCommand_RedshiftConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, executeInit(t, dir))

	content, err := os.ReadFile(filepath.Join(dir, "songplays.yaml"))
	require.NoError(t, err)

	for _, want := range []string{
		"# Warehouse to load.",
		"type: redshift",
		"port: 5439",
		"password: ${DWH_PASSWORD}",
		"arn: arn:aws:iam::123456789012:role/dwhRole",
		"log_data: s3://udacity-dend/log_data",
		"log_jsonpath: s3://udacity-dend/log_json_path.json",
		"song_data: s3://udacity-dend/song_data",
		"state_path: .songplays/state.db",
	} {
		assert.Contains(t, string(content), want)
	}

	var parsed sampleConfig
	require.NoError(t, yaml.Unmarshal(content, &parsed))
	require.NotNil(t, parsed.IAMRole)
	assert.True(t, parsed.Load.Preflight)
	assert.False(t, parsed.Load.Parallel)
}

func TestInitCommand_DuckDBConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, executeInit(t, dir, "--target-type", "duckdb"))

	content, err := os.ReadFile(filepath.Join(dir, "songplays.yaml"))
	require.NoError(t, err)

	var parsed sampleConfig
	require.NoError(t, yaml.Unmarshal(content, &parsed))
	assert.Equal(t, "duckdb", parsed.Target.Type)
	assert.Nil(t, parsed.IAMRole)
	assert.Equal(t, config.S3Config{
		LogData:     "data/log_data",
		LogJSONPath: "log_json_path.json",
		SongData:    "data/song_data",
		Region:      "us-west-2",
	}, parsed.S3)

	descriptor, err := os.ReadFile(filepath.Join(dir, "log_json_path.json"))
	require.NoError(t, err)
	paths, err := sources.ParseJSONPaths(descriptor)
	require.NoError(t, err)
	require.Len(t, paths, len(schema.DefaultEventPaths()))
	assert.Equal(t, "$.artist", paths[0])
	assert.Equal(t, "$.userId", paths[len(paths)-1])
}
