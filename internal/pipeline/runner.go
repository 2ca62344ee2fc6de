package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/download"
	"github.com/JakeFAU/scrapper/internal/fetcher"
	"github.com/JakeFAU/scrapper/internal/links"
	"github.com/JakeFAU/scrapper/internal/page"
	"github.com/JakeFAU/scrapper/internal/policy/resilience"
	"github.com/JakeFAU/scrapper/internal/repository"
)

// IDGenerator issues run identifiers for log correlation.
type IDGenerator interface {
	NewID() (string, error)
}

// RunnerConfig carries the long-lived collaborators shared by every run.
type RunnerConfig struct {
	Fetcher     fetcher.Fetcher
	Markers     crawler.PageMarkerStore
	FileSystems repository.FileSystemFactory
	CacheTTL    time.Duration
	Stdout      io.Writer
	Stderr      io.Writer
	IDs         IDGenerator
	Logger      *zap.Logger
}

// Runner builds and executes pipelines from jobs.
type Runner struct {
	cfg    RunnerConfig
	logger *zap.Logger
}

// NewRunner returns a Runner over cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Validate checks a job without touching the network or any store.
func (r *Runner) Validate(job crawler.Job) error {
	if job.RootURL == nil || !job.RootURL.IsAbs() {
		return fmt.Errorf("%w: root url must be absolute", crawler.ErrConfiguration)
	}
	switch job.ResourceType {
	case crawler.ResourceTypeDownload, crawler.ResourceTypeText:
	default:
		return fmt.Errorf("%w: %q", crawler.ErrUnsupportedResourceType, job.ResourceType)
	}
	switch job.Traversal {
	case "", crawler.TraversalDepthFirst, crawler.TraversalBreadthFirst:
	default:
		return fmt.Errorf("%w: unknown traversal %q", crawler.ErrConfiguration, job.Traversal)
	}
	if job.ResourceXPath == "" {
		return fmt.Errorf("%w: resource xpath is required", crawler.ErrConfiguration)
	}
	for _, expr := range []string{job.AdjacencyXPath, job.ResourceXPath} {
		if expr == "" {
			continue
		}
		if _, err := page.Compile(expr); err != nil {
			return fmt.Errorf("%w: %v", crawler.ErrConfiguration, err)
		}
	}
	if job.PageRetries < 0 || job.HTTPRetries < 0 {
		return fmt.Errorf("%w: retry counts must not be negative", crawler.ErrConfiguration)
	}
	if !job.FullScan && r.cfg.Markers == nil {
		return fmt.Errorf("%w: incremental runs need a page marker store", crawler.ErrConfiguration)
	}
	return repository.Validate(job.Repository)
}

// Run validates job, wires its collaborators and executes the pipeline.
func (r *Runner) Run(ctx context.Context, job crawler.Job) (Stats, error) {
	if err := r.Validate(job); err != nil {
		return Stats{}, err
	}
	logger := r.logger.With(zap.String("site", job.SiteName))
	if r.cfg.IDs != nil {
		if id, err := r.cfg.IDs.NewID(); err == nil {
			logger = logger.With(zap.String("run_id", id))
		}
	}

	calc, err := links.New(job, r.cfg.Markers, logger)
	if err != nil {
		return Stats{}, err
	}
	repo, err := repository.Build(ctx, job.Repository, repository.Options{
		DryRun:     job.DisableResourceWrites,
		FileSystem: r.cfg.FileSystems,
		Stdout:     r.cfg.Stdout,
		Stderr:     r.cfg.Stderr,
		Logger:     logger,
	})
	if err != nil {
		return Stats{}, err
	}

	policy := resilience.Policy{Retries: job.HTTPRetries, Delay: job.HTTPDelay, CacheTTL: r.cfg.CacheTTL}
	pageFetcher, err := resilience.New(ctx, r.cfg.Fetcher, policy, logger)
	if err != nil {
		return Stats{}, err
	}
	defer closeQuietly(logger, pageFetcher)

	var p *Pipeline
	retriever := page.NewRetriever(pageFetcher, logger)
	switch job.ResourceType {
	case crawler.ResourceTypeText:
		p = NewText(job, retriever, calc, repo, logger)
	default:
		policy.NoCache = true
		downloads, err := resilience.New(ctx, r.cfg.Fetcher, policy, logger)
		if err != nil {
			return Stats{}, err
		}
		defer closeQuietly(logger, downloads)
		p = NewDownload(job, retriever, calc, repo, download.New(downloads), logger)
	}

	logger.Info("run started",
		zap.Stringer("url", job.RootURL),
		zap.String("resource_type", string(job.ResourceType)),
		zap.String("traversal", string(job.Traversal)),
		zap.Bool("full_scan", job.FullScan),
		zap.Bool("what_if", job.DisableResourceWrites),
	)
	started := time.Now()
	stats, err := p.Run(ctx)
	fields := []zap.Field{
		zap.Int("pages", stats.Pages),
		zap.Int("stored", stats.Stored),
		zap.Int("skipped", stats.Skipped),
		zap.Int("reloads", stats.Reloads),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		logger.Error("run failed", append(fields, zap.Error(err))...)
		return stats, err
	}
	logger.Info("run finished", fields...)
	return stats, nil
}

// Result is the outcome of one job in a batch.
type Result struct {
	Job   crawler.Job
	Stats Stats
	Err   error
}

// RunAll runs jobs one after another. A failing job is logged and the batch
// continues; the joined errors are returned at the end. Cancellation stops the batch.
func (r *Runner) RunAll(ctx context.Context, jobs []crawler.Job) ([]Result, error) {
	results := make([]Result, 0, len(jobs))
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		stats, err := r.Run(ctx, job)
		results = append(results, Result{Job: job, Stats: stats, Err: err})
		if err != nil {
			r.logger.Error("site failed", zap.String("site", job.SiteName), zap.Error(err))
			errs = append(errs, fmt.Errorf("site %s: %w", job.SiteName, err))
		}
	}
	return results, errors.Join(errs...)
}

func closeQuietly(logger *zap.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close fetch policy", zap.Error(err))
	}
}
