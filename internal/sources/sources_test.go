package sources

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Location
		wantErr bool
	}{
		{"s3 prefix", "s3://udacity-dend/log_data", Location{Scheme: SchemeS3, Bucket: "udacity-dend", Key: "log_data"}, false},
		{"quoted as in ini", "'s3://udacity-dend/song_data'", Location{Scheme: SchemeS3, Bucket: "udacity-dend", Key: "song_data"}, false},
		{"s3 bucket root", "s3://bucket", Location{Scheme: SchemeS3, Bucket: "bucket", Key: ""}, false},
		{"file uri", "file:///data/log_data/", Location{Scheme: SchemeFile, Key: "/data/log_data"}, false},
		{"plain path", "data/song_data", Location{Scheme: SchemeFile, Key: "data/song_data"}, false},
		{"empty", "  ", Location{}, true},
		{"unsupported scheme", "gs://bucket/x", Location{}, true},
		{"missing bucket", "s3:///x", Location{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_String(t *testing.T) {
	assert.Equal(t, "s3://b/k/x.json", Location{Scheme: SchemeS3, Bucket: "b", Key: "k/x.json"}.String())
	assert.Equal(t, "/tmp/a", Location{Scheme: SchemeFile, Key: "/tmp/a"}.String())
}

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"$['userId']", "$.userId", false},
		{`$["ts"]`, "$.ts", false},
		{"$.artist", "$.artist", false},
		{"$['a']['b'][0]", "$.a.b[0]", false},
		{"$['first name']", `$."first name"`, false},
		{"$.a.b", "$.a.b", false},
		{"userId", "", true},
		{"$", "", true},
		{"$['a'", "", true},
		{"$[*]", "", true},
		{"$..a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalPath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONPaths(t *testing.T) {
	doc := `{
    "jsonpaths": [
        "$['artist']",
        "$['userId']"
    ]
}`
	paths, err := ParseJSONPaths([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"$.artist", "$.userId"}, paths)

	_, err = ParseJSONPaths([]byte(`{"jsonpaths": []}`))
	assert.Error(t, err)

	_, err = ParseJSONPaths([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeJSONPaths_RoundTrips(t *testing.T) {
	data, err := EncodeJSONPaths([]string{"$['artist']"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"jsonpaths"`)

	paths, err := ParseJSONPaths(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"$.artist"}, paths)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "A", "B"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A", "B", "two.json"), []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A", "one.json"), []byte("{}\n{}"), 0o600))

	r := NewResolver(nil)
	ctx := context.Background()

	objs, err := r.List(ctx, dir, 0)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, filepath.Join(dir, "A", "B", "two.json"), objs[0].Key)

	objs, err = r.List(ctx, "file://"+dir, 1)
	require.NoError(t, err)
	assert.Len(t, objs, 1)

	data, err := r.Read(ctx, filepath.Join(dir, "A", "one.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n{}", string(data))

	_, err = r.List(ctx, filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}

func TestResolver_S3NotConfigured(t *testing.T) {
	_, err := NewResolver(nil).List(context.Background(), "s3://bucket/prefix", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no S3 client configured")
}

type fakeS3 struct {
	pages   [][]string
	objects map[string]string
	calls   int
	prefix  string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.prefix = aws.ToString(in.Prefix)
	page := f.pages[f.calls]
	f.calls++

	out := &s3.ListObjectsV2Output{}
	for _, k := range page {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(k))),
			LastModified: aws.Time(time.Unix(0, 0)),
		})
	}
	if f.calls < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Store_ListPaginates(t *testing.T) {
	fake := &fakeS3{pages: [][]string{
		{"log_data/2018/11/a.json", "log_data/2018/11/b.json"},
		{"log_data/2018/11/c.json"},
	}}
	r := NewResolver(NewS3Store(fake))

	objs, err := r.List(context.Background(), "s3://udacity-dend/log_data", 0)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "s3://udacity-dend/log_data/2018/11/c.json", objs[2].Key)
	assert.Equal(t, "log_data", fake.prefix)
	assert.Equal(t, 2, fake.calls)
}

func TestS3Store_ListStopsAtLimit(t *testing.T) {
	fake := &fakeS3{pages: [][]string{{"a", "b"}, {"c"}}}
	objs, err := NewS3Store(fake).List(context.Background(), Location{Scheme: SchemeS3, Bucket: "b"}, 1)
	require.NoError(t, err)
	assert.Len(t, objs, 1)
	assert.Equal(t, 1, fake.calls)
}

func TestResolver_ResolveJSONPathsFromS3(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{
		"log_json_path.json": `{"jsonpaths": ["$['ts']", "$['userId']"]}`,
	}}
	r := NewResolver(NewS3Store(fake))

	paths, err := r.ResolveJSONPaths(context.Background(), "s3://udacity-dend/log_json_path.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"$.ts", "$.userId"}, paths)

	_, err = r.ResolveJSONPaths(context.Background(), "s3://udacity-dend/missing.json")
	assert.Error(t, err)
}
