package repository

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/destination"
	"github.com/JakeFAU/scrapper/internal/storage"
)

// Validator checks one repository configuration variant before any I/O happens.
type Validator func(cfg crawler.RepositoryConfig) error

var validators = map[crawler.RepositoryKind]Validator{
	crawler.RepositoryFileSystem: validateFileSystem,
	crawler.RepositoryList:       validateList,
}

// Validate dispatches to the validator registered for cfg.Kind.
func Validate(cfg crawler.RepositoryConfig) error {
	v, ok := validators[cfg.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown repository kind %q", crawler.ErrConfiguration, cfg.Kind)
	}
	return v(cfg)
}

func validateFileSystem(cfg crawler.RepositoryConfig) error {
	if cfg.FileSystem == nil {
		return fmt.Errorf("%w: filesystem repository needs a filesystem block", crawler.ErrConfiguration)
	}
	if _, err := destination.Compile(cfg.FileSystem.Expression); err != nil {
		return err
	}
	switch cfg.FileSystem.Backend {
	case "", "local", "memory":
	case "gcs":
		// The bucket may still come from storage.gcs_bucket.
	default:
		return fmt.Errorf("%w: unknown filesystem backend %q", crawler.ErrConfiguration, cfg.FileSystem.Backend)
	}
	return nil
}

func validateList(cfg crawler.RepositoryConfig) error {
	if cfg.List == nil {
		return nil
	}
	switch cfg.List.Output {
	case "", "stdout", "stderr":
		return nil
	default:
		return fmt.Errorf("%w: unknown list output %q", crawler.ErrConfiguration, cfg.List.Output)
	}
}

// FileSystemFactory opens the raw file system a repository writes to.
type FileSystemFactory func(ctx context.Context, cfg crawler.FileSystemRepositoryConfig) (crawler.FileSystem, error)

// Options carries what Build needs beyond the configuration itself.
type Options struct {
	DryRun     bool
	FileSystem FileSystemFactory
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *zap.Logger
}

// Build validates cfg and constructs the repository it describes.
func Build(ctx context.Context, cfg crawler.RepositoryConfig, opts Options) (crawler.ResourceRepository, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Kind {
	case crawler.RepositoryFileSystem:
		if opts.FileSystem == nil {
			return nil, fmt.Errorf("%w: no file system factory configured", crawler.ErrConfiguration)
		}
		fs, err := opts.FileSystem(ctx, *cfg.FileSystem)
		if err != nil {
			return nil, fmt.Errorf("open file system: %w", err)
		}
		if cfg.FileSystem.ReadOnly {
			fs = storage.NewReadOnly(fs, logger)
		}
		backend, err := NewFileSystemBackend(fs, *cfg.FileSystem)
		if err != nil {
			return nil, err
		}
		return New[Path](backend, opts.DryRun, logger), nil
	case crawler.RepositoryList:
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		if cfg.List != nil && cfg.List.Output == "stderr" {
			out = opts.Stderr
			if out == nil {
				out = os.Stderr
			}
		}
		// The list backend only prints, so dry-run does not apply.
		return New[ResourceURL](NewListBackend(out), false, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown repository kind %q", crawler.ErrConfiguration, cfg.Kind)
	}
}
