package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/songplays/pkg/dialect"
)

// Transform populates one modeled table from tables loaded earlier.
type Transform struct {
	// Table is the table the transform inserts into.
	Table string
	// Sources are the tables read.
	Sources []string
	// DependsOn names transforms that must complete first.
	DependsOn []string
	// TieBreak documents which row survives deduplication.
	TieBreak string
	// Render builds the INSERT statement.
	Render func(d dialect.Dialect) string
}

// Transforms returns the modeled-table transforms in declaration order.
//
// Every dimension keeps one row per natural key, picked with ROW_NUMBER over
// a total ordering, so reruns over the same staging data pick the same rows.
// Descending keys sort NULLs last on every dialect.
//
// songplays filters on nothing but the song-play page and the join. A matched
// play missing a NOT NULL fact column fails the insert instead of being dropped.
func Transforms() []Transform {
	return []Transform{
		{
			Table:    UsersTable,
			Sources:  []string{StagingEventsTable},
			TieBreak: "latest event per user_id (ts, session_id, item_in_session descending)",
			Render:   func(dialect.Dialect) string { return usersInsert },
		},
		{
			Table:    SongsTable,
			Sources:  []string{StagingSongsTable},
			TieBreak: "per song_id: title, artist_id ascending, then year, duration descending",
			Render:   func(dialect.Dialect) string { return songsInsert },
		},
		{
			Table:    ArtistsTable,
			Sources:  []string{StagingSongsTable},
			TieBreak: "per artist_id: rows with a location first, then artist_name, artist_location ascending",
			Render:   func(dialect.Dialect) string { return artistsInsert },
		},
		{
			Table:     SongplaysTable,
			Sources:   []string{StagingEventsTable, StagingSongsTable},
			DependsOn: []string{UsersTable, SongsTable, ArtistsTable},
			TieBreak:  "per event ts: song_id, artist_id, user_id, session_id ascending",
			Render:    func(dialect.Dialect) string { return songplaysInsert },
		},
		{
			Table:     TimeTable,
			Sources:   []string{SongplaysTable},
			DependsOn: []string{SongplaysTable},
			TieBreak:  "distinct start_time; every part derives from it",
			Render:    timeInsert,
		},
	}
}

var usersInsert = `INSERT INTO users (user_id, first_name, last_name, gender, level)
SELECT user_id, first_name, last_name, gender, level
FROM (
    SELECT user_id, first_name, last_name, gender, level,
           ROW_NUMBER() OVER (
               PARTITION BY user_id
               ORDER BY ts DESC NULLS LAST, session_id DESC NULLS LAST, item_in_session DESC NULLS LAST
           ) AS rn
    FROM staging_events
    WHERE user_id IS NOT NULL
      AND page = '` + SongPlayPage + `'
) ranked
WHERE rn = 1`

var songsInsert = `INSERT INTO songs (song_id, title, artist_id, year, duration)
SELECT song_id, title, artist_id, year, duration
FROM (
    SELECT song_id, title, artist_id, year, duration,
           ROW_NUMBER() OVER (
               PARTITION BY song_id
               ORDER BY title, artist_id, year DESC NULLS LAST, duration DESC NULLS LAST
           ) AS rn
    FROM staging_songs
    WHERE song_id IS NOT NULL
) ranked
WHERE rn = 1`

var artistsInsert = `INSERT INTO artists (artist_id, name, location, latitude, longitude)
SELECT artist_id, name, location, latitude, longitude
FROM (
    SELECT artist_id,
           artist_name      AS name,
           artist_location  AS location,
           artist_latitude  AS latitude,
           artist_longitude AS longitude,
           ROW_NUMBER() OVER (
               PARTITION BY artist_id
               ORDER BY CASE WHEN artist_location IS NULL OR artist_location = '' THEN 1 ELSE 0 END,
                        artist_name, artist_location
           ) AS rn
    FROM staging_songs
    WHERE artist_id IS NOT NULL
) ranked
WHERE rn = 1`

var songplaysInsert = `INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT start_time, user_id, level, song_id, artist_id, session_id, location, user_agent
FROM (
    SELECT e.ts AS start_time,
           e.user_id,
           e.level,
           s.song_id,
           s.artist_id,
           e.session_id,
           e.location,
           e.user_agent,
           ROW_NUMBER() OVER (
               PARTITION BY e.ts
               ORDER BY s.song_id, s.artist_id, e.user_id, e.session_id
           ) AS rn
    FROM staging_events e
    JOIN staging_songs s ON e.song = s.title AND e.artist = s.artist_name
    WHERE e.page = '` + SongPlayPage + `'
) matched
WHERE rn = 1`

var timeParts = []struct {
	column string
	part   dialect.DatePart
}{
	{"hour", dialect.PartHour},
	{"day", dialect.PartDay},
	{"week", dialect.PartWeek},
	{"month", dialect.PartMonth},
	{"year", dialect.PartYear},
	{"weekday", dialect.PartDayOfWeek},
}

func timeInsert(d dialect.Dialect) string {
	cols := []string{"start_time"}
	exprs := []string{"start_time"}
	for _, p := range timeParts {
		cols = append(cols, p.column)
		exprs = append(exprs, fmt.Sprintf("%s AS %s", d.DatePart(p.part, "start_time"), p.column))
	}
	return fmt.Sprintf("INSERT INTO time (%s)\nSELECT %s\nFROM (SELECT DISTINCT start_time FROM songplays) starts",
		strings.Join(cols, ", "),
		strings.Join(exprs, ",\n       "),
	)
}
