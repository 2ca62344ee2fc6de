package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/destination"
	"github.com/JakeFAU/scrapper/internal/storage"
)

// Path is the identity of a resource in a file system, relative to its root.
type Path string

func (p Path) String() string { return string(p) }

// FileSystemBackend stores resources at compiled destination paths.
type FileSystemBackend struct {
	fs       crawler.FileSystem
	root     string
	compiler *destination.Compiler
}

// NewFileSystemBackend compiles the destination expression once.
func NewFileSystemBackend(fs crawler.FileSystem, cfg crawler.FileSystemRepositoryConfig) (*FileSystemBackend, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: file system is required", crawler.ErrConfiguration)
	}
	compiler, err := destination.Compile(cfg.Expression)
	if err != nil {
		return nil, err
	}
	return &FileSystemBackend{fs: fs, root: cfg.Root, compiler: compiler}, nil
}

// ID implements Backend.
func (b *FileSystemBackend) ID(info crawler.ResourceInfo) (Path, error) {
	rel, err := b.compiler.Path(info)
	if err != nil {
		return "", err
	}
	if b.root == "" {
		return Path(rel), nil
	}
	joined, err := storage.Join(b.root, rel)
	if err != nil {
		return "", err
	}
	return Path(joined), nil
}

// Exists implements Backend.
func (b *FileSystemBackend) Exists(ctx context.Context, id Path) (bool, error) {
	return b.fs.Exists(ctx, string(id))
}

// Upsert implements Backend.
func (b *FileSystemBackend) Upsert(ctx context.Context, id Path, content io.Reader) error {
	if dir := storage.Dir(string(id)); dir != "" {
		if err := b.fs.MkdirAll(ctx, dir); err != nil {
			return err
		}
	}
	return b.fs.Write(ctx, string(id), content)
}
