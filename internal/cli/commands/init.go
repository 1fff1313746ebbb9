package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/songplays/internal/cli/config"
	intconfig "github.com/leapstack-labs/songplays/internal/config"
	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// jsonPathsFileName is the event descriptor written for local projects.
const jsonPathsFileName = "log_json_path.json"

// sampleConfig is the shape of the generated songplays.yaml.
type sampleConfig struct {
	Target      *config.TargetConfig  `yaml:"target"`
	IAMRole     *config.IAMRoleConfig `yaml:"iam_role,omitempty"`
	S3          config.S3Config       `yaml:"s3"`
	Load        config.LoadOptions    `yaml:"load"`
	Environment string                `yaml:"environment"`
	StatePath   string                `yaml:"state_path"`
}

var sampleComments = map[string]string{
	"target":      "# Warehouse to load. type is redshift or duckdb.\n# Secrets may reference the environment or .env as ${VAR}.",
	"iam_role":    "# Role the warehouse assumes to read the sources.",
	"s3":          "# Source locations. log_jsonpath may be \"auto\" to map JSON keys to column names.",
	"load":        "# parallel runs both bulk loads at once; preflight lists the sources before loading.",
	"environment": "# Label recorded on every run.",
	"state_path":  "# Run history database.",
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a sample songplays.yaml",
		Long: `Write a commented songplays.yaml for a Redshift cluster, or for a local
DuckDB warehouse with --target-type duckdb.

For DuckDB, the event JSONPaths descriptor and empty data directories are
written too, so local JSON files can be dropped in and loaded.`,
		Example: `  # Redshift project in the current directory
  songplays init

  # Local DuckDB project
  songplays init my-project --target-type duckdb

  # Overwrite an existing config
  songplays init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			targetType, _ := cmd.Flags().GetString("target-type")
			if targetType == "" {
				targetType = intconfig.DefaultTargetType
			}

			r := NewCommandContextWithoutEngine(cmd).Renderer
			written, err := runInit(dir, targetType, force)
			if err != nil {
				return err
			}

			for _, f := range written {
				r.StatusLine(f, "success", "")
			}
			r.Println("")
			r.Success("songplays project initialized!")
			r.Println("")
			r.Println("Next steps:")
			r.Println("  1. Fill in the target and source settings in songplays.yaml")
			r.Println("  2. Run 'songplays sources' to check the sources are reachable")
			r.Println("  3. Run 'songplays run' to build the star schema")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(dir, targetType string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return nil, fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	var sample sampleConfig
	switch targetType {
	case "redshift":
		sample = redshiftSample()
	case "duckdb":
		sample = duckdbSample()
	default:
		return nil, fmt.Errorf("unknown target type %q (use redshift or duckdb)", targetType)
	}

	data, err := renderSample(sample)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	written := []string{intconfig.ConfigFileName}

	if targetType != "duckdb" {
		return written, nil
	}

	descriptor, err := sources.EncodeJSONPaths(schema.DefaultEventPaths())
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, jsonPathsFileName), descriptor, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", jsonPathsFileName, err)
	}
	written = append(written, jsonPathsFileName)

	for _, sub := range []string{"data/log_data", "data/song_data"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", sub, err)
		}
		written = append(written, sub+"/")
	}
	return written, nil
}

func redshiftSample() sampleConfig {
	return sampleConfig{
		Target: &config.TargetConfig{
			Type:     "redshift",
			Host:     "dwhcluster.example.us-west-2.redshift.amazonaws.com",
			Port:     intconfig.DefaultRedshiftPort,
			Database: "dwh",
			User:     "dwhuser",
			Password: "${DWH_PASSWORD}",
		},
		IAMRole: &config.IAMRoleConfig{ARN: "arn:aws:iam::123456789012:role/dwhRole"},
		S3: config.S3Config{
			LogData:     "s3://udacity-dend/log_data",
			LogJSONPath: "s3://udacity-dend/log_json_path.json",
			SongData:    "s3://udacity-dend/song_data",
			Region:      intconfig.DefaultRegion,
		},
		Load:        config.LoadOptions{Preflight: true},
		Environment: config.DefaultEnv,
		StatePath:   config.DefaultStateFile,
	}
}

func duckdbSample() sampleConfig {
	return sampleConfig{
		Target: &config.TargetConfig{
			Type:     "duckdb",
			Database: intconfig.DefaultDuckDBPath,
		},
		S3: config.S3Config{
			LogData:     "data/log_data",
			LogJSONPath: jsonPathsFileName,
			SongData:    "data/song_data",
			Region:      intconfig.DefaultRegion,
		},
		Load:        config.LoadOptions{Parallel: true, Preflight: true},
		Environment: config.DefaultEnv,
		StatePath:   config.DefaultStateFile,
	}
}

// renderSample encodes the sample with a comment above each top-level key.
func renderSample(sample sampleConfig) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(sample); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if c, ok := sampleComments[node.Content[i].Value]; ok {
			node.Content[i].HeadComment = c
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
