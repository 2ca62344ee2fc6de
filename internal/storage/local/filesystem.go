// Package local implements the raw file system on top of afero, rooted at a
// base directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/JakeFAU/scrapper/internal/storage"
)

// Config captures the parameters for the local file system.
type Config struct {
	// BaseDir is the root directory every name is resolved against.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// FileSystem writes resources through an afero.Fs.
type FileSystem struct {
	fs afero.Fs
}

// New creates the base directory when needed and roots a file system there.
func New(cfg Config) (*FileSystem, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	osFs := afero.NewOsFs()
	info, err := osFs.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := osFs.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return Wrap(afero.NewBasePathFs(osFs, cfg.BaseDir)), nil
}

// Wrap adapts any afero.Fs, which lets tests and the memory backend share this implementation.
func Wrap(fs afero.Fs) *FileSystem {
	return &FileSystem{fs: fs}
}

// MkdirAll creates dir and its parents.
func (s *FileSystem) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := storage.Normalize(dir)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(name, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a regular file is stored under name.
func (s *FileSystem) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := storage.Normalize(name)
	if err != nil {
		return false, err
	}
	info, err := s.fs.Stat(clean)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", clean, err)
	}
	return !info.IsDir(), nil
}

// Write stores content under name. The data lands in a temporary sibling first
// and is renamed into place, so readers never observe a partial file.
func (s *FileSystem) Write(ctx context.Context, name string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Normalize(name)
	if err != nil {
		return err
	}
	dir := storage.Dir(clean)
	if dir != "" {
		if err := s.fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create parent directories: %w", err)
		}
	}
	if dir == "" {
		dir = "."
	}
	tmp, err := afero.TempFile(s.fs, dir, ".scrapper-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", clean, err)
	}
	if err := s.fs.Rename(tmpName, clean); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", clean, err)
	}
	return nil
}

// Open returns the stored content of name.
func (s *FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := storage.Normalize(name)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", clean, err)
	}
	return f, nil
}
