package crawler

import (
	"context"
	"io"
)

// PageMarkerStore persists the set of visited page URIs.
type PageMarkerStore interface {
	Exists(ctx context.Context, uri string) (bool, error)
	// Upsert is idempotent: a URI is stored at most once.
	Upsert(ctx context.Context, marker PageMarker) error
	List(ctx context.Context) ([]PageMarker, error)
	// Search returns markers whose URI matches the glob pattern.
	Search(ctx context.Context, pattern string) ([]PageMarker, error)
	// Delete removes markers whose URI matches the glob pattern and returns how many went away.
	Delete(ctx context.Context, pattern string) (int, error)
}

// ResourceRepository deduplicates and persists extracted resources.
type ResourceRepository interface {
	// Key is the textual form of the backend identity for info.
	Key(info ResourceInfo) (string, error)
	Exists(ctx context.Context, info ResourceInfo) (bool, error)
	Upsert(ctx context.Context, info ResourceInfo, content io.Reader) error
}

// FileSystem is the raw storage abstraction behind the file-system repository.
// Names are slash separated and relative to the implementation's root.
type FileSystem interface {
	MkdirAll(ctx context.Context, dir string) error
	Exists(ctx context.Context, name string) (bool, error)
	Write(ctx context.Context, name string, content io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// StreamProvider opens the byte stream of a downloadable resource.
type StreamProvider interface {
	GetStream(ctx context.Context, uri string) (io.ReadCloser, error)
}
