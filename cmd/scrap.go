package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/sites"
)

// runFlags are the per-invocation overrides shared by scrap and scrap-all.
type runFlags struct {
	rootURL        string
	fullScan       bool
	downloadAlways bool
	disableMarking bool
	whatIf         bool
	traversal      string
	pageRetries    int
}

func (f *runFlags) register(cmd *cobra.Command, withRoot bool) {
	flags := cmd.Flags()
	if withRoot {
		flags.StringVar(&f.rootURL, "root-url", "", "start the crawl at this URL instead of the site's root")
	}
	flags.BoolVar(&f.fullScan, "full-scan", false, "follow every link, ignoring visited-page markers")
	flags.BoolVar(&f.downloadAlways, "download-always", false, "store resources even when they already exist")
	flags.BoolVar(&f.disableMarking, "disable-marking", false, "do not record visited pages")
	flags.BoolVar(&f.whatIf, "what-if", false, "report what would be stored without writing resources or markers")
	flags.StringVar(&f.traversal, "traversal", "", "graph search strategy: dfs or bfs (default from config)")
	flags.IntVar(&f.pageRetries, "page-retries", 0, "reload a failing page up to this many times (default from config)")
}

// overrides converts the parsed flags. Flags left at their defaults do not override.
func (f *runFlags) overrides(cmd *cobra.Command) (sites.Overrides, error) {
	o := sites.Overrides{
		RootURL:               f.rootURL,
		FullScan:              f.fullScan,
		DownloadAlways:        f.downloadAlways,
		DisableMarkingVisited: f.disableMarking || f.whatIf,
		DisableResourceWrites: f.whatIf,
	}
	switch crawler.Traversal(f.traversal) {
	case "", crawler.TraversalDepthFirst, crawler.TraversalBreadthFirst:
		o.Traversal = crawler.Traversal(f.traversal)
	default:
		return sites.Overrides{}, fmt.Errorf("%w: --traversal must be dfs or bfs, got %q", crawler.ErrConfiguration, f.traversal)
	}
	if cmd.Flags().Changed("page-retries") {
		if f.pageRetries < 0 {
			return sites.Overrides{}, fmt.Errorf("%w: --page-retries must be >= 0", crawler.ErrConfiguration)
		}
		retries := f.pageRetries
		o.PageRetries = &retries
	}
	return o, nil
}

// newScrapCmd creates the 'scrap' subcommand, which runs one site.
func newScrapCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "scrap <site-name | url>",
		Short: "Crawl one site",
		Long: `Runs the site named by the argument. When the argument is a URL, the first
site whose url_pattern matches it is used and the URL becomes the crawl root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			o, err := flags.overrides(cmd)
			if err != nil {
				return err
			}
			job, err := appInstance.Job(args[0], o)
			if err != nil {
				return err
			}
			stats, err := appInstance.GetRunner().Run(cmd.Context(), job)
			if err != nil {
				return fmt.Errorf("scrap %s: %w", job.SiteName, err)
			}
			appInstance.GetLogger().Info("scrap command finished",
				zap.String("site", job.SiteName),
				zap.Int("stored", stats.Stored),
				zap.Int("skipped", stats.Skipped),
			)
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}
