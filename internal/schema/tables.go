package schema

import "github.com/leapstack-labs/songplays/pkg/core"

// Table names.
const (
	StagingEventsTable = "staging_events"
	StagingSongsTable  = "staging_songs"
	SongplaysTable     = "songplays"
	UsersTable         = "users"
	SongsTable         = "songs"
	ArtistsTable       = "artists"
	TimeTable          = "time"
)

// SongPlayPage is the staging_events.page value that marks a song play.
const SongPlayPage = "NextSong"

func ref(table, column string) *core.Reference {
	return &core.Reference{Table: table, Column: column}
}

// StagingEvents lands raw event log records. No constraints.
var StagingEvents = &core.Table{
	Name: StagingEventsTable,
	Kind: core.TableKindStaging,
	Columns: []core.Column{
		{Name: "artist", Type: "VARCHAR(250)"},
		{Name: "auth", Type: "VARCHAR(20)"},
		{Name: "first_name", Type: "VARCHAR(250)"},
		{Name: "gender", Type: "CHAR(1)"},
		{Name: "item_in_session", Type: "INTEGER"},
		{Name: "last_name", Type: "VARCHAR(250)"},
		{Name: "length", Type: "DECIMAL(12,5)"},
		{Name: "level", Type: "VARCHAR(10)"},
		{Name: "location", Type: "VARCHAR(250)"},
		{Name: "method", Type: "VARCHAR(20)"},
		{Name: "page", Type: "VARCHAR(20)"},
		{Name: "registration", Type: "FLOAT"},
		{Name: "session_id", Type: "INTEGER"},
		{Name: "song", Type: "VARCHAR(250)"},
		{Name: "status", Type: "INTEGER"},
		{Name: "ts", Type: "TIMESTAMP"},
		{Name: "user_agent", Type: "VARCHAR(250)"},
		{Name: "user_id", Type: "INTEGER"},
	},
}

// StagingSongs lands raw song catalog records. No constraints.
var StagingSongs = &core.Table{
	Name: StagingSongsTable,
	Kind: core.TableKindStaging,
	Columns: []core.Column{
		{Name: "num_songs", Type: "INTEGER"},
		{Name: "artist_id", Type: "VARCHAR(20)"},
		{Name: "artist_latitude", Type: "DECIMAL(12,5)"},
		{Name: "artist_longitude", Type: "DECIMAL(12,5)"},
		{Name: "artist_location", Type: "VARCHAR(250)"},
		{Name: "artist_name", Type: "VARCHAR(250)"},
		{Name: "song_id", Type: "VARCHAR(20)"},
		{Name: "title", Type: "VARCHAR(250)"},
		{Name: "duration", Type: "DECIMAL(15,5)"},
		{Name: "year", Type: "INTEGER"},
	},
}

// Songplays is the fact table: one row per matched song play.
var Songplays = &core.Table{
	Name: SongplaysTable,
	Kind: core.TableKindFact,
	Columns: []core.Column{
		{Name: "songplay_id", Type: "INTEGER", Identity: true, PrimaryKey: true},
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true, SortKey: true, DistKey: true, References: ref(TimeTable, "start_time")},
		{Name: "user_id", Type: "INTEGER", NotNull: true, References: ref(UsersTable, "user_id")},
		{Name: "level", Type: "VARCHAR(10)", NotNull: true},
		{Name: "song_id", Type: "VARCHAR(20)", NotNull: true, References: ref(SongsTable, "song_id")},
		{Name: "artist_id", Type: "VARCHAR(20)", NotNull: true, References: ref(ArtistsTable, "artist_id")},
		{Name: "session_id", Type: "INTEGER", NotNull: true},
		{Name: "location", Type: "VARCHAR(250)"},
		{Name: "user_agent", Type: "VARCHAR(250)", NotNull: true},
	},
}

// Users is the listener dimension.
var Users = &core.Table{
	Name: UsersTable,
	Kind: core.TableKindDimension,
	Columns: []core.Column{
		{Name: "user_id", Type: "INTEGER", NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "first_name", Type: "VARCHAR(250)", NotNull: true},
		{Name: "last_name", Type: "VARCHAR(250)", NotNull: true},
		{Name: "gender", Type: "CHAR(1)", NotNull: true},
		{Name: "level", Type: "VARCHAR(10)", NotNull: true},
	},
}

// Songs is the track dimension.
var Songs = &core.Table{
	Name: SongsTable,
	Kind: core.TableKindDimension,
	Columns: []core.Column{
		{Name: "song_id", Type: "VARCHAR(20)", NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "title", Type: "VARCHAR(250)", NotNull: true},
		{Name: "artist_id", Type: "VARCHAR(20)", NotNull: true, DistKey: true, References: ref(ArtistsTable, "artist_id")},
		{Name: "year", Type: "INTEGER", NotNull: true},
		{Name: "duration", Type: "DECIMAL(15,5)", NotNull: true},
	},
}

// Artists is the performer dimension. Geo fields are optional.
var Artists = &core.Table{
	Name: ArtistsTable,
	Kind: core.TableKindDimension,
	Columns: []core.Column{
		{Name: "artist_id", Type: "VARCHAR(20)", NotNull: true, SortKey: true, PrimaryKey: true},
		{Name: "name", Type: "VARCHAR(250)", NotNull: true},
		{Name: "location", Type: "VARCHAR(250)"},
		{Name: "latitude", Type: "DECIMAL(12,6)"},
		{Name: "longitude", Type: "DECIMAL(12,6)"},
	},
}

// Time is the timestamp dimension, decomposed into calendar parts.
var Time = &core.Table{
	Name: TimeTable,
	Kind: core.TableKindDimension,
	Columns: []core.Column{
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true, DistKey: true, SortKey: true, PrimaryKey: true},
		{Name: "hour", Type: "INTEGER", NotNull: true},
		{Name: "day", Type: "INTEGER", NotNull: true},
		{Name: "week", Type: "INTEGER", NotNull: true},
		{Name: "month", Type: "INTEGER", NotNull: true},
		{Name: "year", Type: "INTEGER", NotNull: true},
		{Name: "weekday", Type: "INTEGER", NotNull: true},
	},
}

// Tables returns every table in declaration order.
func Tables() []*core.Table {
	return []*core.Table{StagingEvents, StagingSongs, Songplays, Users, Songs, Artists, Time}
}

// DefaultEventPaths maps each staging_events column to its key in the raw
// event log, in column order. It is the content of a JSONPaths descriptor
// for the event log.
func DefaultEventPaths() []string {
	return []string{
		"$['artist']",
		"$['auth']",
		"$['firstName']",
		"$['gender']",
		"$['itemInSession']",
		"$['lastName']",
		"$['length']",
		"$['level']",
		"$['location']",
		"$['method']",
		"$['page']",
		"$['registration']",
		"$['sessionId']",
		"$['song']",
		"$['status']",
		"$['ts']",
		"$['userAgent']",
		"$['userId']",
	}
}
