package sites

import (
	"fmt"
	"net/url"
	"time"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/page"
)

// Defaults are the process-wide values a site may leave unset.
type Defaults struct {
	HTTPRetries int
	HTTPDelay   time.Duration
	PageRetries int
	Traversal   crawler.Traversal
}

// Overrides are per-invocation adjustments, usually from CLI flags.
type Overrides struct {
	RootURL               string
	Traversal             crawler.Traversal
	PageRetries           *int
	FullScan              bool
	DownloadAlways        bool
	DisableMarkingVisited bool
	DisableResourceWrites bool
}

// BuildJob resolves site into an immutable job.
func BuildJob(site crawler.Site, defaults Defaults, o Overrides) (crawler.Job, error) {
	root := o.RootURL
	if root == "" {
		root = site.RootURL
	}
	if root == "" {
		return crawler.Job{}, fmt.Errorf("%w: site %q has no root url", crawler.ErrConfiguration, site.Name)
	}
	normalized, err := page.NormalizeURL(root)
	if err != nil {
		return crawler.Job{}, fmt.Errorf("%w: root url %q must be absolute", crawler.ErrConfiguration, root)
	}
	rootURL, err := url.Parse(normalized)
	if err != nil {
		return crawler.Job{}, fmt.Errorf("%w: root url %q: %v", crawler.ErrConfiguration, root, err)
	}

	job := crawler.Job{
		SiteName:              site.Name,
		RootURL:               rootURL,
		AdjacencyXPath:        site.AdjacencyXPath,
		AdjacencyAttribute:    site.AdjacencyAttribute,
		ResourceXPath:         site.ResourceXPath,
		ResourceAttribute:     site.ResourceAttribute,
		ResourceType:          site.ResourceType,
		Repository:            site.Repository,
		HTTPRetries:           defaults.HTTPRetries,
		HTTPDelay:             defaults.HTTPDelay,
		PageRetries:           defaults.PageRetries,
		Traversal:             defaults.Traversal,
		FullScan:              o.FullScan,
		DownloadAlways:        o.DownloadAlways,
		DisableMarkingVisited: o.DisableMarkingVisited,
		DisableResourceWrites: o.DisableResourceWrites,
	}
	if job.ResourceType == "" {
		job.ResourceType = crawler.ResourceTypeDownload
	}
	if site.HTTPRetries != nil {
		job.HTTPRetries = *site.HTTPRetries
	}
	if site.HTTPDelay > 0 {
		job.HTTPDelay = site.HTTPDelay
	}
	if site.Traversal != "" {
		job.Traversal = site.Traversal
	}
	if o.Traversal != "" {
		job.Traversal = o.Traversal
	}
	if job.Traversal == "" {
		job.Traversal = crawler.TraversalDepthFirst
	}
	if o.PageRetries != nil {
		job.PageRetries = *o.PageRetries
	}
	return job, nil
}
