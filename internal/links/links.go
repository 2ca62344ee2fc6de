// Package links computes the adjacency of a page during graph search.
package links

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/page"
)

// Calculator returns the URIs to traverse next from a page.
type Calculator interface {
	CalculateLinks(ctx context.Context, p *page.Page, xpath, attr string) iter.Seq2[string, error]
}

// FullScan returns every matched link with no filtering and no side effects.
type FullScan struct{}

// CalculateLinks implements Calculator.
func (FullScan) CalculateLinks(_ context.Context, p *page.Page, xpath, attr string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if xpath == "" {
			return
		}
		found, err := p.Links(xpath, attr)
		if err != nil {
			yield("", err)
			return
		}
		for _, u := range found {
			if !yield(u.String(), nil) {
				return
			}
		}
	}
}

// Incremental drops links already marked visited and marks the current page
// once its adjacency has been fully enumerated.
type Incremental struct {
	store          crawler.PageMarkerStore
	disableMarking bool
	logger         *zap.Logger
}

// NewIncremental builds an Incremental calculator over store.
func NewIncremental(store crawler.PageMarkerStore, disableMarking bool, logger *zap.Logger) *Incremental {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Incremental{store: store, disableMarking: disableMarking, logger: logger}
}

// CalculateLinks implements Calculator.
func (c *Incremental) CalculateLinks(ctx context.Context, p *page.Page, xpath, attr string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if xpath != "" {
			found, err := p.Links(xpath, attr)
			if err != nil {
				yield("", err)
				return
			}
			for _, u := range found {
				uri := u.String()
				visited, err := c.store.Exists(ctx, uri)
				if err != nil {
					yield("", fmt.Errorf("check marker %s: %w", uri, err))
					return
				}
				if visited {
					c.logger.Debug("link already visited", zap.String("url", uri))
					continue
				}
				if !yield(uri, nil) {
					return
				}
			}
		}
		if c.disableMarking {
			return
		}
		if err := c.store.Upsert(ctx, crawler.PageMarker{URI: p.Key()}); err != nil {
			yield("", fmt.Errorf("mark %s visited: %w", p.Key(), err))
		}
	}
}

// New selects the calculator for job. Full-scan jobs never consult the marker store.
func New(job crawler.Job, store crawler.PageMarkerStore, logger *zap.Logger) (Calculator, error) {
	if job.FullScan {
		return FullScan{}, nil
	}
	if store == nil {
		return nil, fmt.Errorf("%w: incremental link calculation needs a page marker store", crawler.ErrConfiguration)
	}
	return NewIncremental(store, job.DisableMarkingVisited, logger), nil
}
