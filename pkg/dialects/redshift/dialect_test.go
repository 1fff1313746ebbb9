package redshift

import (
	"testing"

	"github.com/leapstack-labs/songplays/pkg/core"
	"github.com/leapstack-labs/songplays/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistered(t *testing.T) {
	d, ok := dialect.Get("redshift")
	require.True(t, ok)
	assert.Equal(t, "public", d.DefaultSchema())
	assert.False(t, d.ResolvesJSONPaths())
}

func TestCreateTable(t *testing.T) {
	tbl := &core.Table{
		Name: "songplays",
		Columns: []core.Column{
			{Name: "songplay_id", Type: "INTEGER", Identity: true, PrimaryKey: true},
			{Name: "start_time", Type: "TIMESTAMP", NotNull: true, SortKey: true, DistKey: true,
				References: &core.Reference{Table: "time", Column: "start_time"}},
			{Name: "location", Type: "VARCHAR(250)"},
		},
	}

	stmts := Redshift.CreateTable(tbl)
	require.Len(t, stmts, 1)
	want := "CREATE TABLE songplays (\n" +
		"    songplay_id INTEGER      IDENTITY(0,1) PRIMARY KEY,\n" +
		"    start_time  TIMESTAMP    DISTKEY SORTKEY NOT NULL REFERENCES time (start_time),\n" +
		"    location    VARCHAR(250)\n" +
		")"
	assert.Equal(t, want, stmts[0])
}

func TestDropTable(t *testing.T) {
	assert.Equal(t, []string{"DROP TABLE IF EXISTS time"}, Redshift.DropTable(&core.Table{Name: "time"}))
}

func TestCopyJSON(t *testing.T) {
	events := &core.Table{Name: "staging_events"}
	songs := &core.Table{Name: "staging_songs"}
	arn := "arn:aws:iam::123456789012:role/dwhRole"

	tests := []struct {
		name     string
		spec     core.CopySpec
		want     string
		redacted string
		wantErr  string
	}{
		{
			name: "events with jsonpaths and epoch millis",
			spec: core.CopySpec{
				Table: events, Source: "s3://udacity-dend/log_data", RoleARN: arn, Region: "us-west-2",
				JSONPaths: "s3://udacity-dend/log_json_path.json", TimeFormat: core.TimeFormatEpochMillis,
			},
			want: "copy staging_events from 's3://udacity-dend/log_data'\n" +
				"credentials 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'\n" +
				"region 'us-west-2' format as JSON 's3://udacity-dend/log_json_path.json'\n" +
				"timeformat as 'epochmillisecs'",
			redacted: "copy staging_events from 's3://udacity-dend/log_data'\n" +
				"credentials 'aws_iam_role=arn:aws:iam::************:role/dwhRole'\n" +
				"region 'us-west-2' format as JSON 's3://udacity-dend/log_json_path.json'\n" +
				"timeformat as 'epochmillisecs'",
		},
		{
			name: "songs with auto mapping",
			spec: core.CopySpec{Table: songs, Source: "s3://udacity-dend/song_data", RoleARN: arn, Region: "us-west-2"},
			want: "copy staging_songs from 's3://udacity-dend/song_data'\n" +
				"credentials 'aws_iam_role=arn:aws:iam::123456789012:role/dwhRole'\n" +
				"region 'us-west-2' format as JSON 'auto'",
		},
		{
			name:    "missing role",
			spec:    core.CopySpec{Table: songs, Source: "s3://b/p", Region: "us-west-2"},
			wantErr: "IAM role ARN is required",
		},
		{
			name:    "missing source",
			spec:    core.CopySpec{Table: songs, RoleARN: arn, Region: "us-west-2"},
			wantErr: "source location is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Redshift.CopyJSON(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SQL)
			if tt.redacted != "" {
				assert.Equal(t, tt.redacted, got.Redacted)
			}
			assert.NotContains(t, got.Redacted, "123456789012")
		})
	}
}

func TestMaskARN(t *testing.T) {
	assert.Equal(t, "arn:aws:iam::************:role/r", maskARN("arn:aws:iam::999999999999:role/r"))
	assert.Equal(t, "****", maskARN("not-an-arn"))
}

func TestDatePart(t *testing.T) {
	assert.Equal(t, "EXTRACT(dayofweek FROM start_time)", Redshift.DatePart(dialect.PartDayOfWeek, "start_time"))
}
