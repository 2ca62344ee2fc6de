package crawler

import (
	"net/url"
	"time"

	"github.com/JakeFAU/scrapper/internal/page"
)

// ResourceType selects the extraction pipeline used by a job.
type ResourceType string

// Supported resource types.
const (
	ResourceTypeDownload ResourceType = "download"
	ResourceTypeText     ResourceType = "text"
)

// Traversal selects the graph search strategy.
type Traversal string

// Supported traversal strategies.
const (
	TraversalDepthFirst   Traversal = "dfs"
	TraversalBreadthFirst Traversal = "bfs"
)

// RepositoryKind tags the concrete resource repository backend.
type RepositoryKind string

// Known repository backends.
const (
	RepositoryFileSystem RepositoryKind = "filesystem"
	RepositoryList       RepositoryKind = "list"
)

// RepositoryConfig is a tagged variant: Kind names the backend and exactly one
// of the backend-specific blocks is expected to be populated.
type RepositoryConfig struct {
	Kind       RepositoryKind              `yaml:"kind" mapstructure:"kind"`
	FileSystem *FileSystemRepositoryConfig `yaml:"filesystem,omitempty" mapstructure:"filesystem"`
	List       *ListRepositoryConfig       `yaml:"list,omitempty" mapstructure:"list"`
}

// FileSystemRepositoryConfig stores resources at paths compiled from Expression.
type FileSystemRepositoryConfig struct {
	// Expression is a text/template rendered against the resource descriptor.
	Expression string `yaml:"expression" mapstructure:"expression"`
	// Root is joined in front of every compiled path.
	Root string `yaml:"root,omitempty" mapstructure:"root"`
	// Backend is one of local, gcs or memory. Empty uses storage.backend.
	Backend string `yaml:"backend,omitempty" mapstructure:"backend"`
	// Bucket is the object store bucket for the gcs backend.
	Bucket string `yaml:"bucket,omitempty" mapstructure:"bucket"`
	// ReadOnly turns every write into a no-op.
	ReadOnly bool `yaml:"read_only,omitempty" mapstructure:"read_only"`
}

// ListRepositoryConfig only emits resource URLs.
type ListRepositoryConfig struct {
	// Output is "stdout" (default) or "stderr".
	Output string `yaml:"output,omitempty" mapstructure:"output"`
}

// Site is a named, persisted template for a Job.
type Site struct {
	Name               string           `yaml:"name,omitempty"`
	URLPattern         string           `yaml:"url_pattern,omitempty"`
	RootURL            string           `yaml:"root_url,omitempty"`
	AdjacencyXPath     string           `yaml:"adjacency_xpath,omitempty"`
	AdjacencyAttribute string           `yaml:"adjacency_attribute,omitempty"`
	ResourceXPath      string           `yaml:"resource_xpath,omitempty"`
	ResourceAttribute  string           `yaml:"resource_attribute,omitempty"`
	ResourceType       ResourceType     `yaml:"resource_type,omitempty"`
	Repository         RepositoryConfig `yaml:"repository,omitempty"`
	HTTPRetries        *int             `yaml:"http_retries,omitempty"`
	HTTPDelay          time.Duration    `yaml:"http_delay,omitempty"`
	Traversal          Traversal        `yaml:"traversal,omitempty"`
}

// Job is the resolved configuration of a single run.
type Job struct {
	SiteName           string
	RootURL            *url.URL
	AdjacencyXPath     string
	AdjacencyAttribute string
	ResourceXPath      string
	ResourceAttribute  string
	ResourceType       ResourceType
	Repository         RepositoryConfig
	HTTPRetries        int
	HTTPDelay          time.Duration
	PageRetries        int
	Traversal          Traversal

	FullScan              bool
	DownloadAlways        bool
	DisableMarkingVisited bool
	DisableResourceWrites bool
}

// ResourceInfo identifies one discovered resource on a page.
type ResourceInfo struct {
	Page          *page.Page
	PageIndex     int
	ResourceURL   *url.URL
	ResourceIndex int
}

// PageMarker records that a URI has been visited.
type PageMarker struct {
	URI string `json:"uri"`
}
