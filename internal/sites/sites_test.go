package sites

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

const sitesYAML = `
defaults:
  adjacency_xpath: //a[@class='next']
  adjacency_attribute: href
  http_retries: 2
  repository:
    kind: filesystem
    filesystem:
      expression: "{{ .Resource.Host }}/{{ .Resource.FileName }}"
sites:
  reports:
    url_pattern: ^https?://reports\.example\.com/
    root_url: https://reports.example.com/
    resource_xpath: //a[contains(@href, '.pdf')]
    resource_attribute: href
    http_delay: 250ms
  quotes:
    url_pattern: ^https?://(www\.)?example\.com/quotes
    resource_xpath: //p[@class='quote']
    resource_type: text
    traversal: bfs
    repository:
      kind: list
`

func TestParseMergesDefaults(t *testing.T) {
	t.Parallel()

	store, err := Parse([]byte(sitesYAML))
	require.NoError(t, err)

	reports, ok := store.Get("reports")
	require.True(t, ok)
	assert.Equal(t, "reports", reports.Name)
	assert.Equal(t, "//a[@class='next']", reports.AdjacencyXPath)
	assert.Equal(t, 250*time.Millisecond, reports.HTTPDelay)
	require.NotNil(t, reports.HTTPRetries)
	assert.Equal(t, 2, *reports.HTTPRetries)
	assert.Equal(t, crawler.RepositoryFileSystem, reports.Repository.Kind)

	quotes, ok := store.Get("quotes")
	require.True(t, ok)
	assert.Equal(t, crawler.RepositoryList, quotes.Repository.Kind)
	assert.Equal(t, crawler.ResourceTypeText, quotes.ResourceType)
	assert.Equal(t, crawler.TraversalBreadthFirst, quotes.Traversal)

	names := []string{}
	for _, s := range store.List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"quotes", "reports"}, names)
}

func TestMatchAndResolve(t *testing.T) {
	t.Parallel()

	store, err := Parse([]byte(sitesYAML))
	require.NoError(t, err)

	site, ok := store.Match("https://www.example.com/quotes/page/2")
	require.True(t, ok)
	assert.Equal(t, "quotes", site.Name)

	_, ok = store.Match("https://unknown.org/")
	assert.False(t, ok)

	site, err = store.Resolve("reports")
	require.NoError(t, err)
	assert.Equal(t, "reports", site.Name)

	site, err = store.Resolve("http://reports.example.com/2024/")
	require.NoError(t, err)
	assert.Equal(t, "reports", site.Name)

	_, err = store.Resolve("nothing")
	assert.ErrorIs(t, err, crawler.ErrSiteNotFound)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("sites: [unterminated"))
	assert.ErrorIs(t, err, crawler.ErrConfiguration)

	_, err = Parse([]byte("sites:\n  bad:\n    url_pattern: '('\n"))
	assert.ErrorIs(t, err, crawler.ErrConfiguration)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sitesYAML), 0o600))
	store, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, store.List(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, crawler.ErrConfiguration)
}

func TestBuildJob(t *testing.T) {
	t.Parallel()

	store, err := Parse([]byte(sitesYAML))
	require.NoError(t, err)
	defaults := Defaults{HTTPRetries: 3, HTTPDelay: time.Second, PageRetries: 5, Traversal: crawler.TraversalDepthFirst}

	reports, _ := store.Get("reports")
	job, err := BuildJob(reports, defaults, Overrides{DownloadAlways: true})
	require.NoError(t, err)
	assert.Equal(t, "https://reports.example.com/", job.RootURL.String())
	assert.Equal(t, 2, job.HTTPRetries)
	assert.Equal(t, 250*time.Millisecond, job.HTTPDelay)
	assert.Equal(t, 5, job.PageRetries)
	assert.Equal(t, crawler.ResourceTypeDownload, job.ResourceType)
	assert.Equal(t, crawler.TraversalDepthFirst, job.Traversal)
	assert.True(t, job.DownloadAlways)
	assert.False(t, job.FullScan)

	retries := 1
	quotes, _ := store.Get("quotes")
	job, err = BuildJob(quotes, defaults, Overrides{
		RootURL:     "https://example.com/quotes",
		Traversal:   crawler.TraversalDepthFirst,
		PageRetries: &retries,
		FullScan:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/quotes", job.RootURL.String())
	assert.Equal(t, crawler.TraversalDepthFirst, job.Traversal)
	assert.Equal(t, 1, job.PageRetries)
	assert.True(t, job.FullScan)
}

func TestBuildJobNeedsRootURL(t *testing.T) {
	t.Parallel()

	store, err := Parse([]byte(sitesYAML))
	require.NoError(t, err)
	quotes, _ := store.Get("quotes")

	_, err = BuildJob(quotes, Defaults{}, Overrides{})
	assert.ErrorIs(t, err, crawler.ErrConfiguration)

	_, err = BuildJob(quotes, Defaults{}, Overrides{RootURL: "/relative"})
	assert.ErrorIs(t, err, crawler.ErrConfiguration)
}

func TestBuildJobCanonicalizesRoot(t *testing.T) {
	t.Parallel()

	store, err := Parse([]byte(sitesYAML))
	require.NoError(t, err)
	quotes, _ := store.Get("quotes")

	job, err := BuildJob(quotes, Defaults{}, Overrides{RootURL: "HTTPS://Example.com:443#intro"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", job.RootURL.String())
}

func TestLoadExampleSites(t *testing.T) {
	store, err := Load(filepath.Join("..", "..", "configs", "sites.example.yaml"))
	require.NoError(t, err)
	require.Len(t, store.List(), 3)

	headlines, ok := store.Get("headlines")
	require.True(t, ok)
	assert.Equal(t, crawler.ResourceTypeText, headlines.ResourceType)
	assert.Equal(t, crawler.TraversalBreadthFirst, headlines.Traversal)

	reports, err := store.Resolve("https://reports.example.com/archive/2024/")
	require.NoError(t, err)
	assert.Equal(t, "reports", reports.Name)
	assert.Equal(t, time.Second, reports.HTTPDelay)

	links, ok := store.Get("links-only")
	require.True(t, ok)
	assert.Equal(t, crawler.RepositoryList, links.Repository.Kind)
}
