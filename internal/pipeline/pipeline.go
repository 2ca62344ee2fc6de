// Package pipeline runs the download and text extraction pipelines: graph
// search over pages, per-page resource extraction, deduplication and upserts,
// with page-level retry-and-reload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/graph"
	"github.com/JakeFAU/scrapper/internal/links"
	"github.com/JakeFAU/scrapper/internal/metrics"
	"github.com/JakeFAU/scrapper/internal/page"
)

// Stats summarizes a run.
type Stats struct {
	Pages   int
	Stored  int
	Skipped int
	Reloads int
}

// PageSource fetches pages for the graph search.
type PageSource interface {
	GetPage(ctx context.Context, uri string) (*page.Page, error)
}

// Pipeline is one configured run over a job.
type Pipeline struct {
	job       crawler.Job
	pages     PageSource
	links     links.Calculator
	repo      crawler.ResourceRepository
	extractor Extractor
	logger    *zap.Logger
}

// New assembles a pipeline. Use NewDownload or NewText unless a custom Extractor is needed.
func New(
	job crawler.Job,
	pages PageSource,
	calc links.Calculator,
	repo crawler.ResourceRepository,
	extractor Extractor,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		job:       job,
		pages:     pages,
		links:     calc,
		repo:      repo,
		extractor: extractor,
		logger:    logger,
	}
}

// NewDownload builds the binary download pipeline.
func NewDownload(
	job crawler.Job,
	pages PageSource,
	calc links.Calculator,
	repo crawler.ResourceRepository,
	streams crawler.StreamProvider,
	logger *zap.Logger,
) *Pipeline {
	return New(job, pages, calc, repo, DownloadExtractor{Streams: streams}, logger)
}

// NewText builds the text capture pipeline.
func NewText(
	job crawler.Job,
	pages PageSource,
	calc links.Calculator,
	repo crawler.ResourceRepository,
	logger *zap.Logger,
) *Pipeline {
	return New(job, pages, calc, repo, TextExtractor{}, logger)
}

// Run traverses the graph from the job's root and processes every yielded page.
// It stops at the first page that cannot be processed within its retry budget.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	if p.job.RootURL == nil {
		return stats, fmt.Errorf("%w: job has no root url", crawler.ErrConfiguration)
	}
	root, err := page.NormalizeURL(p.job.RootURL.String())
	if err != nil {
		return stats, fmt.Errorf("%w: root url: %v", crawler.ErrConfiguration, err)
	}
	search := strategy(p.job.Traversal)
	visit := func(ref string) (*page.Page, error) {
		return p.pages.GetPage(ctx, ref)
	}
	adjacent := func(pg *page.Page) iter.Seq2[string, error] {
		return p.links.CalculateLinks(ctx, pg, p.job.AdjacencyXPath, p.job.AdjacencyAttribute)
	}

	pageIndex := 0
	for pg, err := range search(root, visit, adjacent) {
		if err != nil {
			metrics.ObservePage(p.job.SiteName, "error")
			return stats, fmt.Errorf("traverse: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := p.processWithReload(ctx, pg, pageIndex, &stats); err != nil {
			metrics.ObservePage(p.job.SiteName, "error")
			return stats, err
		}
		metrics.ObservePage(p.job.SiteName, "ok")
		stats.Pages++
		pageIndex++
	}
	return stats, nil
}

func strategy(t crawler.Traversal) graph.Search[string, *page.Page] {
	if t == crawler.TraversalBreadthFirst {
		return graph.BreadthFirst[string, *page.Page]
	}
	return graph.DepthFirst[string, *page.Page]
}

// processWithReload runs the page's resource loop. A failed attempt reloads the
// page from scratch and restarts the loop from the first resource.
func (p *Pipeline) processWithReload(ctx context.Context, pg *page.Page, pageIndex int, stats *Stats) error {
	logger := p.logger.With(zap.String("url", pg.Key()), zap.Int("page_index", pageIndex))
	current := pg
	var lastErr error
	for attempt := 0; attempt <= p.job.PageRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("reloading page after failure", zap.Int("attempt", attempt), zap.Error(lastErr))
			metrics.ObservePageReload(p.job.SiteName)
			stats.Reloads++
			fresh, err := current.Reload(ctx)
			if err != nil {
				lastErr = fmt.Errorf("reload: %w", err)
				if !retryable(err) {
					return lastErr
				}
				continue
			}
			current = fresh
		}
		result, err := p.processPage(ctx, current, pageIndex, logger)
		stats.Stored += result.Stored
		stats.Skipped += result.Skipped
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return fmt.Errorf("process page %s: %w", pg.Key(), err)
		}
	}
	return fmt.Errorf("process page %s after %d attempts: %w", pg.Key(), p.job.PageRetries+1, lastErr)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, crawler.ErrConfiguration), errors.Is(err, page.ErrInvalidXPath):
		return false
	default:
		return true
	}
}

func (p *Pipeline) processPage(ctx context.Context, pg *page.Page, pageIndex int, logger *zap.Logger) (Stats, error) {
	var result Stats
	items, err := p.extractor.Extract(p.job, pg, pageIndex)
	if err != nil {
		return result, fmt.Errorf("extract resources: %w", err)
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		key, err := p.repo.Key(item.Info)
		if err != nil {
			return result, fmt.Errorf("resource %d key: %w", item.Info.ResourceIndex, err)
		}
		if !p.job.DownloadAlways {
			exists, err := p.repo.Exists(ctx, item.Info)
			if err != nil {
				return result, fmt.Errorf("check %s: %w", key, err)
			}
			if exists {
				logger.Debug("resource already stored", zap.String("resource_key", key))
				metrics.ObserveResource(p.job.SiteName, metrics.ResourceSkipped)
				result.Skipped++
				continue
			}
		}
		content := newLazyReader(ctx, item.Open)
		err = p.repo.Upsert(ctx, item.Info, content)
		closeErr := content.Close()
		if err != nil {
			return result, fmt.Errorf("store %s: %w", key, err)
		}
		if closeErr != nil {
			logger.Warn("closing resource stream", zap.String("resource_key", key), zap.Error(closeErr))
		}
		outcome := metrics.ResourceStored
		if p.job.DisableResourceWrites {
			outcome = metrics.ResourceDryRun
		}
		metrics.ObserveResource(p.job.SiteName, outcome)
		logger.Info("resource stored", zap.String("resource_key", key), zap.String("outcome", outcome))
		result.Stored++
	}
	return result, nil
}
