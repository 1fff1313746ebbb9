package schema

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
	"github.com/leapstack-labs/songplays/pkg/dialects/redshift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoadConfig = LoadConfig{
	LogData:     "s3://udacity-dend/log_data",
	LogJSONPath: "s3://udacity-dend/log_json_path.json",
	SongData:    "s3://udacity-dend/song_data",
	RoleARN:     "arn:aws:iam::123456789012:role/dwhRole",
}

func statementNames(stmts []core.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Name
	}
	return out
}

func redshiftQueries(t *testing.T) *Queries {
	t.Helper()
	q, err := Default().Queries(redshift.Redshift, testLoadConfig)
	require.NoError(t, err)
	return q
}

func TestQueries_Redshift_Groups(t *testing.T) {
	q := redshiftQueries(t)

	assert.Equal(t, []string{
		"DROP TABLE IF EXISTS songplays",
		"DROP TABLE IF EXISTS time",
		"DROP TABLE IF EXISTS songs",
		"DROP TABLE IF EXISTS artists",
		"DROP TABLE IF EXISTS users",
		"DROP TABLE IF EXISTS staging_songs",
		"DROP TABLE IF EXISTS staging_events",
	}, sqlOf(q.Drop))

	assert.Equal(t, []string{
		"create_staging_events", "create_staging_songs", "create_users", "create_artists",
		"create_songs", "create_time", "create_songplays",
	}, statementNames(q.Create))

	assert.Equal(t, []string{"copy_staging_events", "copy_staging_songs"}, statementNames(q.Copy))
	assert.Equal(t, []string{"insert_users", "insert_songs", "insert_artists", "insert_songplays", "insert_time"}, statementNames(q.Insert))
	assert.Equal(t, []string{"row_counts"}, statementNames(q.Check))

	for _, s := range q.Stage(core.StageTransform) {
		assert.Equal(t, core.StageTransform, s.Stage)
	}
}

func sqlOf(stmts []core.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

func TestQueries_CreateNeverUsesIfNotExists(t *testing.T) {
	for _, s := range redshiftQueries(t).Create {
		assert.NotContains(t, strings.ToUpper(s.SQL), "IF NOT EXISTS", s.Name)
	}
}

func TestQueries_StagingTablesHaveNoConstraints(t *testing.T) {
	q := redshiftQueries(t)
	for _, s := range q.Create {
		if !strings.HasPrefix(s.Table, "staging_") {
			continue
		}
		for _, kw := range []string{"NOT NULL", "PRIMARY KEY", "REFERENCES", "SORTKEY", "DISTKEY"} {
			assert.NotContains(t, s.SQL, kw, s.Name)
		}
	}
}

func TestTables_ModeledColumnsNotNullExceptOptional(t *testing.T) {
	optional := map[string]bool{
		"artists.location":      true,
		"artists.latitude":      true,
		"artists.longitude":     true,
		"songplays.location":    true,
		"songplays.songplay_id": true, // identity
	}
	for _, tbl := range Tables() {
		if tbl.Kind == core.TableKindStaging {
			continue
		}
		for _, c := range tbl.Columns {
			key := tbl.Name + "." + c.Name
			assert.Equal(t, !optional[key], c.NotNull, key)
		}
	}
}

func TestQueries_RedshiftCreateSongplays(t *testing.T) {
	q := redshiftQueries(t)
	var got string
	for _, s := range q.Create {
		if s.Name == "create_songplays" {
			got = s.SQL
		}
	}
	want := `CREATE TABLE songplays (
    songplay_id INTEGER      IDENTITY(0,1) PRIMARY KEY,
    start_time  TIMESTAMP    DISTKEY SORTKEY NOT NULL REFERENCES time (start_time),
    user_id     INTEGER      NOT NULL REFERENCES users (user_id),
    level       VARCHAR(10)  NOT NULL,
    song_id     VARCHAR(20)  NOT NULL REFERENCES songs (song_id),
    artist_id   VARCHAR(20)  NOT NULL REFERENCES artists (artist_id),
    session_id  INTEGER      NOT NULL,
    location    VARCHAR(250),
    user_agent  VARCHAR(250) NOT NULL
)`
	assert.Equal(t, want, got)
}

func TestQueries_RedshiftCopy(t *testing.T) {
	q := redshiftQueries(t)
	require.Len(t, q.Copy, 2)

	assert.Equal(t, `copy staging_events from 's3://udacity-dend/log_data'
credentials 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'
region 'us-west-2' format as JSON 's3://udacity-dend/log_json_path.json'
timeformat as 'epochmillisecs'`, q.Copy[0].SQL)

	assert.Equal(t, `copy staging_songs from 's3://udacity-dend/song_data'
credentials 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'
region 'us-west-2' format as JSON 'auto'`, q.Copy[1].SQL)

	for _, s := range q.Copy {
		assert.NotContains(t, s.Display(), "123456789012")
	}
}

func TestQueries_CopyRegionOverride(t *testing.T) {
	cfg := testLoadConfig
	cfg.Region = "eu-west-1"
	q, err := Default().Queries(redshift.Redshift, cfg)
	require.NoError(t, err)
	assert.Contains(t, q.Copy[1].SQL, "region 'eu-west-1'")
}

func TestQueries_MissingRoleFails(t *testing.T) {
	cfg := testLoadConfig
	cfg.RoleARN = ""
	_, err := Default().Queries(redshift.Redshift, cfg)
	assert.Error(t, err)
}

func TestQueries_NilDialect(t *testing.T) {
	_, err := Default().Queries(nil, testLoadConfig)
	assert.ErrorIs(t, err, dialect.ErrDialectRequired)
}

func TestQueries_TimeInsertReadsSongplays(t *testing.T) {
	q := redshiftQueries(t)
	last := q.Insert[len(q.Insert)-1]
	assert.Equal(t, "time", last.Table)
	assert.Equal(t, `INSERT INTO time (start_time, hour, day, week, month, year, weekday)
SELECT start_time,
       EXTRACT(hour FROM start_time) AS hour,
       EXTRACT(day FROM start_time) AS day,
       EXTRACT(week FROM start_time) AS week,
       EXTRACT(month FROM start_time) AS month,
       EXTRACT(year FROM start_time) AS year,
       EXTRACT(dayofweek FROM start_time) AS weekday
FROM (SELECT DISTINCT start_time FROM songplays) starts`, last.SQL)
}

func TestQueries_SongplaysInnerJoinFiltersSongPlays(t *testing.T) {
	q := redshiftQueries(t)
	var sql string
	for _, s := range q.Insert {
		if s.Table == "songplays" {
			sql = s.SQL
		}
	}
	assert.Contains(t, sql, "JOIN staging_songs s ON e.song = s.title AND e.artist = s.artist_name")
	assert.NotContains(t, sql, "LEFT JOIN")
	assert.Contains(t, sql, "e.page = 'NextSong'")
	assert.Contains(t, sql, "PARTITION BY e.ts")
	assert.NotContains(t, sql, "IS NOT NULL", "matched plays are not filtered on fact columns")
}

func TestQueries_DescendingTieBreaksSortNullsLast(t *testing.T) {
	byTable := make(map[string]string)
	for _, s := range redshiftQueries(t).Insert {
		byTable[s.Table] = s.SQL
	}
	assert.Contains(t, byTable["users"],
		"ORDER BY ts DESC NULLS LAST, session_id DESC NULLS LAST, item_in_session DESC NULLS LAST")
	assert.Contains(t, byTable["songs"],
		"ORDER BY title, artist_id, year DESC NULLS LAST, duration DESC NULLS LAST")
	for table, sql := range byTable {
		assert.NotRegexp(t, `DESC(,|\n|$)`, sql, table)
	}
}

func TestQueries_Plan(t *testing.T) {
	q := redshiftQueries(t)
	p := q.Plan(core.StageCreate, core.StageCheck)
	require.Len(t, p.Stages, 2)
	assert.Len(t, p.Statements(), len(q.Create)+1)
}

func TestRowCountQuery(t *testing.T) {
	got := RowCountQuery(Tables())
	assert.Equal(t, `SELECT (SELECT COUNT(*) FROM staging_events) AS staging_events,
       (SELECT COUNT(*) FROM staging_songs) AS staging_songs,
       (SELECT COUNT(*) FROM songplays) AS songplays,
       (SELECT COUNT(*) FROM users) AS users,
       (SELECT COUNT(*) FROM songs) AS songs,
       (SELECT COUNT(*) FROM artists) AS artists,
       (SELECT COUNT(*) FROM time) AS time`, got)
}

func TestReadRowCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	tables := Tables()
	cols := tableNames(tables)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(cols).AddRow(8056, 14896, 333, 104, 14896, 10025, 333))

	rows, err := db.Query("SELECT 1")
	require.NoError(t, err)

	rc, err := ReadRowCounts(&core.Rows{Rows: rows}, tables)
	require.NoError(t, err)
	n, ok := rc.Get("songplays")
	require.True(t, ok)
	assert.Equal(t, int64(333), n)
	assert.Equal(t, int64(10025), rc.Counts[5].Rows)
}

func TestReadRowCounts_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"users"}))
	rows, err := db.Query("SELECT 1")
	require.NoError(t, err)

	_, err = ReadRowCounts(&core.Rows{Rows: rows}, []*core.Table{Users})
	assert.Error(t, err)
}
