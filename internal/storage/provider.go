// Package storage holds the helpers shared by the raw file systems and the
// page marker stores: slash path handling, a read-only file system wrapper and
// the marker store decorators.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// ErrInvalidPath is returned for names that are empty or escape the storage root.
var ErrInvalidPath = errors.New("invalid storage path")

// Normalize cleans a slash separated name and makes it relative to the root.
func Normalize(name string) (string, error) {
	slashed := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, name)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return cleaned, nil
}

// Join joins elements into a normalized relative name.
func Join(elem ...string) (string, error) {
	return Normalize(path.Join(elem...))
}

// Dir returns the parent of a normalized name, or "" at the root.
func Dir(name string) string {
	dir := path.Dir(name)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// ReadOnly wraps a file system so every mutation becomes a no-op. Reads still
// reach the wrapped implementation.
type ReadOnly struct {
	crawler.FileSystem
	logger *zap.Logger
}

// NewReadOnly wraps fs.
func NewReadOnly(fs crawler.FileSystem, logger *zap.Logger) *ReadOnly {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadOnly{FileSystem: fs, logger: logger}
}

// MkdirAll is a no-op.
func (r *ReadOnly) MkdirAll(context.Context, string) error { return nil }

// Write drains nothing and stores nothing.
func (r *ReadOnly) Write(_ context.Context, name string, _ io.Reader) error {
	r.logger.Debug("read-only file system dropped write", zap.String("path", name))
	return nil
}

// DisabledMarkers is a marker store that never remembers anything, used to force
// a full re-run while keeping the incremental calculator.
type DisabledMarkers struct{}

// Exists always reports not visited.
func (DisabledMarkers) Exists(context.Context, string) (bool, error) { return false, nil }

// Upsert drops the marker.
func (DisabledMarkers) Upsert(context.Context, crawler.PageMarker) error { return nil }

// List returns nothing.
func (DisabledMarkers) List(context.Context) ([]crawler.PageMarker, error) { return nil, nil }

// Search returns nothing.
func (DisabledMarkers) Search(context.Context, string) ([]crawler.PageMarker, error) {
	return nil, nil
}

// Delete removes nothing.
func (DisabledMarkers) Delete(context.Context, string) (int, error) { return 0, nil }

// RetryingMarkers retries Upsert on transient store failures.
type RetryingMarkers struct {
	crawler.PageMarkerStore
	retries int
	logger  *zap.Logger
}

// WithUpsertRetries wraps store so a failed Upsert is attempted up to retries more times.
// Context cancellation is never retried.
func WithUpsertRetries(store crawler.PageMarkerStore, retries int, logger *zap.Logger) *RetryingMarkers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries < 0 {
		retries = 0
	}
	return &RetryingMarkers{PageMarkerStore: store, retries: retries, logger: logger}
}

// Upsert implements crawler.PageMarkerStore.
func (r *RetryingMarkers) Upsert(ctx context.Context, marker crawler.PageMarker) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		err = r.PageMarkerStore.Upsert(ctx, marker)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		r.logger.Warn("marker upsert failed",
			zap.String("url", marker.URI),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("upsert marker %s after %d attempts: %w", marker.URI, r.retries+1, err)
}
