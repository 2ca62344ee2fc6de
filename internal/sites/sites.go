// Package sites loads persisted site definitions and resolves them into jobs.
package sites

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// File is the on-disk layout of the sites file.
type File struct {
	// Defaults apply to every site unless the site overrides the field.
	Defaults crawler.Site            `yaml:"defaults,omitempty"`
	Sites    map[string]crawler.Site `yaml:"sites,omitempty"`
}

// FileStore serves site definitions read from a yaml file.
type FileStore struct {
	sites    map[string]crawler.Site
	names    []string
	patterns map[string]*regexp.Regexp
}

// Load reads and parses path.
func Load(path string) (*FileStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-provided sites file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: sites file %s not found", crawler.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a sites document and merges defaults into every site.
func Parse(data []byte) (*FileStore, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse sites: %v", crawler.ErrConfiguration, err)
	}
	store := &FileStore{
		sites:    make(map[string]crawler.Site, len(f.Sites)),
		patterns: make(map[string]*regexp.Regexp),
	}
	for name := range f.Sites {
		site := f.Site(name)
		if site.URLPattern != "" {
			re, err := regexp.Compile(site.URLPattern)
			if err != nil {
				return nil, fmt.Errorf("%w: site %q url_pattern: %v", crawler.ErrConfiguration, name, err)
			}
			store.patterns[name] = re
		}
		store.sites[name] = site
		store.names = append(store.names, name)
	}
	sort.Strings(store.names)
	return store, nil
}

// Site returns the named site merged over the defaults.
func (f *File) Site(name string) crawler.Site {
	result := f.Defaults
	result.Name = name
	site, ok := f.Sites[name]
	if !ok {
		return result
	}
	if site.URLPattern != "" {
		result.URLPattern = site.URLPattern
	}
	if site.RootURL != "" {
		result.RootURL = site.RootURL
	}
	if site.AdjacencyXPath != "" {
		result.AdjacencyXPath = site.AdjacencyXPath
	}
	if site.AdjacencyAttribute != "" {
		result.AdjacencyAttribute = site.AdjacencyAttribute
	}
	if site.ResourceXPath != "" {
		result.ResourceXPath = site.ResourceXPath
	}
	if site.ResourceAttribute != "" {
		result.ResourceAttribute = site.ResourceAttribute
	}
	if site.ResourceType != "" {
		result.ResourceType = site.ResourceType
	}
	if site.Repository.Kind != "" {
		result.Repository = site.Repository
	}
	if site.HTTPRetries != nil {
		result.HTTPRetries = site.HTTPRetries
	}
	if site.HTTPDelay != 0 {
		result.HTTPDelay = site.HTTPDelay
	}
	if site.Traversal != "" {
		result.Traversal = site.Traversal
	}
	return result
}

// Get returns the site called name.
func (s *FileStore) Get(name string) (crawler.Site, bool) {
	site, ok := s.sites[name]
	return site, ok
}

// Match returns the first site, by name, whose URL pattern matches rawURL.
func (s *FileStore) Match(rawURL string) (crawler.Site, bool) {
	for _, name := range s.names {
		if re, ok := s.patterns[name]; ok && re.MatchString(rawURL) {
			return s.sites[name], true
		}
	}
	return crawler.Site{}, false
}

// Resolve finds a site by name, then by URL pattern.
func (s *FileStore) Resolve(nameOrURL string) (crawler.Site, error) {
	if site, ok := s.Get(nameOrURL); ok {
		return site, nil
	}
	if site, ok := s.Match(nameOrURL); ok {
		return site, nil
	}
	return crawler.Site{}, fmt.Errorf("%w: %s", crawler.ErrSiteNotFound, nameOrURL)
}

// List returns every site ordered by name.
func (s *FileStore) List() []crawler.Site {
	out := make([]crawler.Site, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.sites[name])
	}
	return out
}
