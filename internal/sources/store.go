package sources

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Object describes one stored object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store reads objects from one kind of storage.
type Store interface {
	// List returns up to limit objects at or below loc. A limit <= 0 means no limit.
	List(ctx context.Context, loc Location, limit int) ([]Object, error)
	// Open opens a single object.
	Open(ctx context.Context, loc Location) (io.ReadCloser, error)
}

// Resolver dispatches to the store for a location's scheme.
type Resolver struct {
	S3    Store
	Local Store
}

// NewResolver returns a resolver with a local store and the given S3 store.
// s3 may be nil when no S3 access is configured.
func NewResolver(s3 Store) *Resolver {
	return &Resolver{S3: s3, Local: LocalStore{}}
}

func (r *Resolver) store(loc Location) (Store, error) {
	switch loc.Scheme {
	case SchemeS3:
		if r.S3 == nil {
			return nil, fmt.Errorf("no S3 client configured for %s", loc)
		}
		return r.S3, nil
	case SchemeFile:
		return r.Local, nil
	}
	return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
}

// List parses raw and lists objects below it.
func (r *Resolver) List(ctx context.Context, raw string, limit int) ([]Object, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	st, err := r.store(loc)
	if err != nil {
		return nil, err
	}
	return st.List(ctx, loc, limit)
}

// Read parses raw and reads the whole object.
func (r *Resolver) Read(ctx context.Context, raw string) ([]byte, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	st, err := r.store(loc)
	if err != nil {
		return nil, err
	}
	rc, err := st.Open(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, nil
}

// ResolveJSONPaths fetches and parses a JSONPaths descriptor.
func (r *Resolver) ResolveJSONPaths(ctx context.Context, raw string) ([]string, error) {
	data, err := r.Read(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JSONPaths descriptor: %w", err)
	}
	paths, err := ParseJSONPaths(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw, err)
	}
	return paths, nil
}
