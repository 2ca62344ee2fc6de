// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/scrapper/internal/api"
	"github.com/JakeFAU/scrapper/internal/config"
	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/fetcher"
	collyfetcher "github.com/JakeFAU/scrapper/internal/fetcher/colly"
	"github.com/JakeFAU/scrapper/internal/id/uuid"
	"github.com/JakeFAU/scrapper/internal/logging"
	"github.com/JakeFAU/scrapper/internal/pipeline"
	"github.com/JakeFAU/scrapper/internal/sites"
	"github.com/JakeFAU/scrapper/internal/storage"
	gcsfs "github.com/JakeFAU/scrapper/internal/storage/gcs"
	"github.com/JakeFAU/scrapper/internal/storage/local"
	"github.com/JakeFAU/scrapper/internal/storage/memory"
	"github.com/JakeFAU/scrapper/internal/storage/postgres"
	"github.com/JakeFAU/scrapper/internal/storage/sqlite"
)

// Options overrides collaborators NewApp would otherwise build from configuration.
type Options struct {
	Logger  *zap.Logger
	Fetcher fetcher.Fetcher
	Stdout  io.Writer
	Stderr  io.Writer
	// GCSOptions are passed to the object store client, e.g. a test endpoint.
	GCSOptions []option.ClientOption
}

// App holds all the shared, long-lived services for the application.
// It is initialized once per command and closed by a Cobra hook.
type App struct {
	cfg     config.Config
	opts    Options
	logger  *zap.Logger
	fetcher fetcher.Fetcher
	markers crawler.PageMarkerStore
	runner  *pipeline.Runner

	memoryFS *local.FileSystem

	mu        sync.Mutex
	gcsClient *gcs.Client
	sites     *sites.FileStore

	metricsSrv  *http.Server
	metricsAddr string
	closers     []func() error
}

// NewApp creates the application services described by cfg.
// It fails fast if any critical service cannot be initialized.
func NewApp(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	a := &App{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		memoryFS: memory.NewFileSystem(),
	}

	markers, closer, err := newMarkerStore(ctx, cfg.Markers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize page markers: %w", err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.markers = markers

	a.fetcher = opts.Fetcher
	if a.fetcher == nil {
		a.fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.HTTP.UserAgent,
			RespectRobots: cfg.HTTP.RespectRobots,
			Timeout:       cfg.HTTP.Timeout,
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
			FileRoot:      cfg.HTTP.FileRoot,
		})
	}

	a.runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Fetcher:     a.fetcher,
		Markers:     a.markers,
		FileSystems: a.OpenFileSystem,
		CacheTTL:    cfg.HTTP.CacheTTL,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
		IDs:         uuid.New(),
		Logger:      logger,
	})

	if cfg.Metrics.Addr != "" {
		if err := a.startMetricsServer(cfg.Metrics.Addr); err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Debug("application services initialized",
		zap.String("markers", cfg.Markers.Driver),
		zap.String("storage", cfg.Storage.Backend),
	)
	return a, nil
}

func newMarkerStore(
	ctx context.Context,
	cfg config.MarkersConfig,
	logger *zap.Logger,
) (crawler.PageMarkerStore, func() error, error) {
	var (
		store  crawler.PageMarkerStore
		closer func() error
	)
	switch cfg.Driver {
	case "memory":
		store = memory.NewMarkerStore()
	case "sqlite":
		s, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, s.Close
	case "postgres":
		s, err := postgres.NewMarkerStore(ctx, postgres.MarkerStoreConfig{
			DSN:      cfg.DSN,
			Table:    cfg.Table,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		store = s
		closer = func() error {
			s.Close()
			return nil
		}
	case "disabled":
		logger.Info("page markers disabled; incremental runs will revisit every page")
		return storage.DisabledMarkers{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown marker driver: %s", cfg.Driver)
	}
	if cfg.UpsertRetries > 0 {
		store = storage.WithUpsertRetries(store, cfg.UpsertRetries, logger)
	}
	return store, closer, nil
}

// OpenFileSystem resolves the raw file system behind a file-system repository.
func (a *App) OpenFileSystem(ctx context.Context, cfg crawler.FileSystemRepositoryConfig) (crawler.FileSystem, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = a.cfg.Storage.Backend
	}
	switch backend {
	case "", "local":
		return local.New(local.Config{BaseDir: a.cfg.Storage.Root})
	case "memory":
		return a.memoryFS, nil
	case "gcs":
		bucket := cfg.Bucket
		if bucket == "" {
			bucket = a.cfg.Storage.GCSBucket
		}
		if bucket == "" {
			return nil, fmt.Errorf("%w: gcs backend needs a bucket", crawler.ErrConfiguration)
		}
		client, err := a.storageClient(ctx)
		if err != nil {
			return nil, err
		}
		return gcsfs.New(client, gcsfs.Config{Bucket: bucket})
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", crawler.ErrConfiguration, backend)
	}
}

func (a *App) storageClient(ctx context.Context) (*gcs.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gcsClient != nil {
		return a.gcsClient, nil
	}
	client, err := gcs.NewClient(ctx, a.opts.GCSOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	a.gcsClient = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// Sites loads the site definitions on first use.
func (a *App) Sites() (*sites.FileStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sites != nil {
		return a.sites, nil
	}
	store, err := sites.Load(a.cfg.Sites.File)
	if err != nil {
		return nil, err
	}
	a.sites = store
	return store, nil
}

// Job resolves a site by name, else by URL pattern, and builds its job.
// When nameOrURL is an absolute URL it becomes the root unless o sets one.
func (a *App) Job(nameOrURL string, o sites.Overrides) (crawler.Job, error) {
	store, err := a.Sites()
	if err != nil {
		return crawler.Job{}, err
	}
	site, err := store.Resolve(nameOrURL)
	if err != nil {
		return crawler.Job{}, err
	}
	if o.RootURL == "" && site.Name != nameOrURL {
		if u, perr := url.Parse(nameOrURL); perr == nil && u.IsAbs() {
			o.RootURL = nameOrURL
		}
	}
	return sites.BuildJob(site, a.cfg.JobDefaults(), o)
}

// Jobs builds a job for every site. Sites with a url_pattern but no root_url
// are skipped. Sites that cannot be built are reported in the joined error and
// left out of the slice.
func (a *App) Jobs(o sites.Overrides) ([]crawler.Job, error) {
	store, err := a.Sites()
	if err != nil {
		return nil, err
	}
	var (
		jobs []crawler.Job
		errs []error
	)
	for _, site := range store.List() {
		if site.RootURL == "" && o.RootURL == "" && site.URLPattern != "" {
			a.logger.Info("site skipped: runs only when invoked with a url", zap.String("site", site.Name))
			continue
		}
		job, err := sites.BuildJob(site, a.cfg.JobDefaults(), o)
		if err != nil {
			a.logger.Error("site skipped", zap.String("site", site.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("site %s: %w", site.Name, err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Join(errs...)
}

// ValidateSite checks a site definition without touching the network or any store.
func (a *App) ValidateSite(site crawler.Site) error {
	var o sites.Overrides
	if site.RootURL == "" {
		if site.URLPattern == "" {
			return fmt.Errorf("%w: site %q has neither root_url nor url_pattern", crawler.ErrConfiguration, site.Name)
		}
		// URL-driven sites receive their root when invoked.
		o.RootURL = "about:blank"
	}
	job, err := sites.BuildJob(site, a.cfg.JobDefaults(), o)
	if err != nil {
		return err
	}
	return a.runner.Validate(job)
}

func (a *App) startMetricsServer(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on metrics addr %s: %w", addr, err)
	}
	ready := func(ctx context.Context) error {
		_, err := a.markers.Exists(ctx, "readyz")
		return err
	}
	srv := &http.Server{
		Handler:           api.NewServer(a.markers, ready, a.logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.metricsSrv = srv
	a.metricsAddr = ln.Addr().String()

	go func() {
		a.logger.Info("metrics server started", zap.String("addr", a.metricsAddr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetMarkers exposes the configured page marker store.
func (a *App) GetMarkers() crawler.PageMarkerStore {
	return a.markers
}

// GetRunner returns the pipeline runner.
func (a *App) GetRunner() *pipeline.Runner {
	return a.runner
}

// MetricsAddr is the address the metrics server listens on, or "".
func (a *App) MetricsAddr() string {
	return a.metricsAddr
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown error", zap.Error(err))
		}
		cancel()
		a.metricsSrv = nil
	}
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	// Best effort: syncing stderr-backed loggers fails on some platforms.
	_ = a.logger.Sync()
}
