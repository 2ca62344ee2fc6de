// Package cmd defines and implements the CLI commands for the scrapper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/app"
	internalconfig "github.com/JakeFAU/scrapper/internal/config"
	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/pipeline"
	"github.com/JakeFAU/scrapper/internal/sites"
	"github.com/JakeFAU/scrapper/pkg/config"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
// This allows tests to inject a fake app.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetMarkers() crawler.PageMarkerStore
	GetRunner() *pipeline.Runner
	Sites() (*sites.FileStore, error)
	Job(nameOrURL string, o sites.Overrides) (crawler.Job, error)
	Jobs(o sites.Overrides) ([]crawler.Job, error)
	ValidateSite(site crawler.Site) error
	MetricsAddr() string
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(cmd *cobra.Command, cfgFile string) (App, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := internalconfig.Load(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crawler.ErrConfiguration, err)
	}
	return app.NewApp(cmd.Context(), cfg, app.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "scrapper",
		Short: "Crawl a site's page graph and capture the resources it links to.",
		Long: `scrapper walks the pages of a configured site, following links selected by
XPath, and stores the resources it finds. Runs are incremental: visited pages
are remembered so later runs only explore what is new.`,
		SilenceUsage: true,

		// Build the application once flags are parsed, before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd, cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			if addr := appInstance.MetricsAddr(); addr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "ops server listening on http://%s\n", addr)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			closeApp(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ./config.yaml, /etc/scrapper/, $HOME/.scrapper)")

	cmd.AddCommand(newScrapCmd())
	cmd.AddCommand(newScrapAllCmd())
	cmd.AddCommand(newMarkersCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}

// resolveApp fetches the App stored by PersistentPreRunE.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services are not initialized")
	}
	return appInstance, nil
}

func closeApp(ctx context.Context) {
	if appInstance, ok := ctx.Value(appKey).(App); ok && appInstance != nil {
		appInstance.Close()
	}
}

// Execute is the main entry point. It exits non-zero when the command fails.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newRootCmd(), os.Args[1:]); err != nil {
		stop()
		os.Exit(exitCode(err))
	}
}

// execute runs root with args. Post-run hooks are skipped when a command
// fails, so the App is closed here on that path.
func execute(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	executed, err := root.ExecuteContextC(ctx)
	if err != nil && executed != nil && executed.Context() != nil {
		closeApp(executed.Context())
	}
	return err
}

// exitCode maps failures to process exit codes: 2 for configuration problems,
// 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, crawler.ErrConfiguration) ||
		errors.Is(err, crawler.ErrUnsupportedResourceType) ||
		errors.Is(err, crawler.ErrSiteNotFound) {
		return 2
	}
	return 1
}
