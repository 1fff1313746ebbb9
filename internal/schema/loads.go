package schema

import "github.com/leapstack-labs/songplays/pkg/core"

// DefaultRegion is the region the source buckets live in.
const DefaultRegion = "us-west-2"

// LoadConfig carries storage locations and credentials for the staging loads.
// It is built once by the caller and passed in explicitly.
type LoadConfig struct {
	// LogData is the event log location.
	LogData string
	// LogJSONPath is the event log JSONPaths descriptor location, or "auto".
	LogJSONPath string
	// SongData is the song catalog location.
	SongData string
	// RoleARN is the IAM role the warehouse assumes to read the locations.
	RoleARN string
	Region  string
	// EventPaths are the descriptor's expressions, one per staging_events
	// column. Needed only by dialects that project columns themselves.
	EventPaths []string
}

// Loads returns the two bulk loads: events with a JSONPaths descriptor and
// epoch-millisecond timestamps, songs with automatic mapping.
func Loads(cfg LoadConfig) []core.CopySpec {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	return []core.CopySpec{
		{
			Table:      StagingEvents,
			Source:     cfg.LogData,
			RoleARN:    cfg.RoleARN,
			Region:     region,
			JSONPaths:  cfg.LogJSONPath,
			Paths:      cfg.EventPaths,
			TimeFormat: core.TimeFormatEpochMillis,
		},
		{
			Table:     StagingSongs,
			Source:    cfg.SongData,
			RoleARN:   cfg.RoleARN,
			Region:    region,
			JSONPaths: core.JSONPathsAuto,
		},
	}
}
