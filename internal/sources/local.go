package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore reads from the local filesystem.
type LocalStore struct{}

// List walks loc.Key. A file lists as itself.
func (LocalStore) List(ctx context.Context, loc Location, limit int) ([]Object, error) {
	info, err := os.Stat(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", loc.Key, err)
	}
	if !info.IsDir() {
		return []Object{{Key: loc.Key, Size: info.Size(), LastModified: info.ModTime()}}, nil
	}

	errLimit := errors.New("limit reached")
	var objects []Object
	err = filepath.WalkDir(loc.Key, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: path, Size: fi.Size(), LastModified: fi.ModTime()})
		if limit > 0 && len(objects) >= limit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("failed to list %s: %w", loc.Key, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open opens the file at loc.Key.
func (LocalStore) Open(_ context.Context, loc Location) (io.ReadCloser, error) {
	f, err := os.Open(loc.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", loc.Key, err)
	}
	return f, nil
}
