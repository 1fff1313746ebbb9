package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/songplays/internal/schema"
	"github.com/leapstack-labs/songplays/internal/sources"
	"github.com/leapstack-labs/songplays/internal/testutil"
	"github.com/leapstack-labs/songplays/pkg/adapter"
	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/songplays/pkg/adapters/duckdb"
)

// localSources writes a small event log, song catalog and JSONPaths
// descriptor under a temp dir.
func localSources(t *testing.T) schema.LoadConfig {
	t.Helper()
	dir := t.TempDir()

	event := func(ts int64, userID, song, artist, page string) map[string]any {
		return map[string]any{
			"artist": artist, "auth": "Logged In", "firstName": "Lily", "gender": "F",
			"itemInSession": 0, "lastName": "Koch", "length": 245.0, "level": "paid",
			"location": "Chicago-Naperville-Elgin, IL-IN-WI", "method": "PUT", "page": page,
			"registration": 1541048010796.0, "sessionId": 818, "song": song, "status": 200,
			"ts": ts, "userAgent": "Mozilla/5.0 (X11; Linux x86_64)", "userId": userID,
		}
	}
	song := func(id, title, artistID, artist string) map[string]any {
		return map[string]any{
			"num_songs": 1, "artist_id": artistID, "artist_latitude": 51.50632,
			"artist_longitude": -0.12714, "artist_location": "London, England", "artist_name": artist,
			"song_id": id, "title": title, "duration": 245.0, "year": 2011,
		}
	}

	logData := filepath.Join(dir, "log_data")
	testutil.WriteJSONLines(t, filepath.Join(logData, "2018", "11", "2018-11-02-events.json"),
		event(1541121934796, "10", "Set Fire to the Rain", "Adele", "NextSong"),
		event(1541122000000, "15", "Rolling in the Deep", "Adele", "NextSong"),
		event(1541122100000, "15", "", "", "Home"),
		event(1541122200000, "", "Unknown", "Nobody", "NextSong"),
	)
	songData := filepath.Join(dir, "song_data")
	testutil.WriteJSONLines(t, filepath.Join(songData, "A", "A", "TRAAAFD128F92F423A.json"),
		song("SOAFBCP12A8C13CC7D", "Set Fire to the Rain", "ARNPAGF1187FB3EA2B", "Adele"))
	testutil.WriteJSONLines(t, filepath.Join(songData, "A", "B", "TRABBNP128F932546F.json"),
		song("SOBROLL12A8C13CC7E", "Rolling in the Deep", "ARNPAGF1187FB3EA2B", "Adele"))

	descriptor, err := sources.EncodeJSONPaths(schema.DefaultEventPaths())
	require.NoError(t, err)
	jsonPaths := filepath.Join(dir, "log_json_path.json")
	require.NoError(t, os.WriteFile(jsonPaths, descriptor, 0o600))

	return schema.LoadConfig{LogData: logData, LogJSONPath: jsonPaths, SongData: songData}
}

func newDuckDBEngine(t *testing.T, load schema.LoadConfig) *Engine {
	t.Helper()
	eng, err := New(Config{
		AdapterConfig: adapter.Config{Type: "duckdb", Path: ":memory:"},
		TargetLabel:   "duckdb(:memory:)",
		Load:          load,
		StatePath:     ":memory:",
		ParallelLoad:  true,
		Preflight:     true,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestScenario_DuckDBFullRun(t *testing.T) {
	eng := newDuckDBEngine(t, localSources(t))
	ctx := context.Background()

	res, err := eng.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Run.Status)

	want := map[string]int64{
		"staging_events": 4,
		"staging_songs":  2,
		"songplays":      2,
		"users":          2,
		"songs":          2,
		"artists":        1,
		"time":           2,
	}
	for table, n := range want {
		got, ok := res.Counts.Get(table)
		require.True(t, ok, table)
		assert.Equal(t, n, got, table)
	}

	// drop and create include the songplays identity sequence
	assert.Len(t, res.Statements, 8+8+2+5+1)
}

func TestScenario_RerunIsIdempotent(t *testing.T) {
	eng := newDuckDBEngine(t, localSources(t))
	ctx := context.Background()

	first, err := eng.Run(ctx)
	require.NoError(t, err)
	second, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Counts, second.Counts)

	runs, err := eng.Store().ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestScenario_StagesRunSeparately(t *testing.T) {
	eng := newDuckDBEngine(t, localSources(t))
	ctx := context.Background()

	res, err := eng.Run(ctx, core.StageReset, core.StageCreate, core.StageCheck)
	require.NoError(t, err)
	assert.Zero(t, res.Counts.Total())

	_, err = eng.Run(ctx, core.StageLoad)
	require.NoError(t, err)

	res, err = eng.Run(ctx, core.StageTransform, core.StageCheck)
	require.NoError(t, err)
	n, _ := res.Counts.Get("songplays")
	assert.Equal(t, int64(2), n)

	// Creating again without a reset fails: tables already exist.
	_, err = eng.Run(ctx, core.StageCreate)
	var se *StatementError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindSchema, se.Kind())
}

func TestScenario_CheckBeforeCreate(t *testing.T) {
	eng := newDuckDBEngine(t, localSources(t))

	_, err := eng.Run(context.Background(), core.StageCheck)
	var se *StatementError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindDiagnostic, se.Kind())
}

func TestScenario_MissingDescriptor(t *testing.T) {
	load := localSources(t)
	load.LogJSONPath = filepath.Join(t.TempDir(), "missing.json")
	eng := newDuckDBEngine(t, load)

	_, err := eng.Run(context.Background(), core.StageLoad)
	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "log_jsonpath", srcErr.Source)

	// Stages without load never read the descriptor.
	_, err = eng.Plan(context.Background(), core.StageCreate)
	assert.NoError(t, err)
}
