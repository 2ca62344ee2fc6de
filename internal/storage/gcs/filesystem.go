// Package gcs provides a file system backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	"github.com/JakeFAU/scrapper/internal/storage"
)

// Config captures the parameters required to address a bucket.
type Config struct {
	Bucket string
	// Prefix is prepended to every object name.
	Prefix string
}

// FileSystem maps slash separated names onto objects in one bucket.
type FileSystem struct {
	client *gcs.Client
	bucket string
	prefix string
}

// New creates a GCS-backed file system.
func New(client *gcs.Client, cfg Config) (*FileSystem, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &FileSystem{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// MkdirAll is a no-op; object stores have no directories.
func (s *FileSystem) MkdirAll(context.Context, string) error { return nil }

// Exists reports whether an object is stored under name.
func (s *FileSystem) Exists(ctx context.Context, name string) (bool, error) {
	obj, err := s.object(name)
	if err != nil {
		return false, err
	}
	if _, err := obj.Attrs(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", obj.ObjectName(), err)
	}
	return true, nil
}

// Write uploads content; the object becomes visible only when the upload completes.
// A failed copy aborts the upload so no partial object is committed.
func (s *FileSystem) Write(ctx context.Context, name string, content io.Reader) error {
	obj, err := s.object(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := obj.NewWriter(ctx)
	if _, err := io.Copy(writer, content); err != nil {
		// Close commits unless the writer's context is already canceled.
		cancel()
		_ = writer.Close()
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Open streams the object stored under name.
func (s *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.object(name)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", obj.ObjectName(), err)
	}
	return r, nil
}

// Close releases the underlying client.
func (s *FileSystem) Close() error {
	return s.client.Close()
}

func (s *FileSystem) object(name string) (*gcs.ObjectHandle, error) {
	clean, err := storage.Normalize(name)
	if err != nil {
		return nil, err
	}
	if s.prefix != "" {
		clean = s.prefix + "/" + clean
	}
	return s.client.Bucket(s.bucket).Object(clean), nil
}
