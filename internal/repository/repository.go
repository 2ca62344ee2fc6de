// Package repository deduplicates and persists extracted resources.
//
// Each backend owns its identity type; New adapts it to the uniform
// crawler.ResourceRepository surface used by the pipelines.
package repository

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// Backend is a concrete storage strategy with its own identity type.
type Backend[ID fmt.Stringer] interface {
	// ID derives the identity of info deterministically.
	ID(info crawler.ResourceInfo) (ID, error)
	Exists(ctx context.Context, id ID) (bool, error)
	Upsert(ctx context.Context, id ID, content io.Reader) error
}

// Repository adapts a Backend to crawler.ResourceRepository.
type Repository[ID fmt.Stringer] struct {
	backend Backend[ID]
	dryRun  bool
	logger  *zap.Logger
}

// New wraps backend. In dry-run mode identities are still computed and logged
// but nothing is written and the content stream is never read.
func New[ID fmt.Stringer](backend Backend[ID], dryRun bool, logger *zap.Logger) *Repository[ID] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository[ID]{backend: backend, dryRun: dryRun, logger: logger}
}

// Key returns the textual identity of info.
func (r *Repository[ID]) Key(info crawler.ResourceInfo) (string, error) {
	id, err := r.backend.ID(info)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Exists reports whether the resource is already stored.
func (r *Repository[ID]) Exists(ctx context.Context, info crawler.ResourceInfo) (bool, error) {
	id, err := r.backend.ID(info)
	if err != nil {
		return false, err
	}
	return r.backend.Exists(ctx, id)
}

// Upsert stores content under the resource identity.
func (r *Repository[ID]) Upsert(ctx context.Context, info crawler.ResourceInfo, content io.Reader) error {
	id, err := r.backend.ID(info)
	if err != nil {
		return err
	}
	if r.dryRun {
		r.logger.Info("what-if: would store resource",
			zap.String("resource_key", id.String()),
			zap.Stringer("url", info.ResourceURL),
		)
		return nil
	}
	if err := r.backend.Upsert(ctx, id, content); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}
