package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// MarkerStore provides an in-memory page marker store.
type MarkerStore struct {
	mu      sync.RWMutex
	markers map[string]struct{}
}

// NewMarkerStore constructs an empty MarkerStore.
func NewMarkerStore() *MarkerStore {
	return &MarkerStore{markers: make(map[string]struct{})}
}

// Exists reports whether uri was marked.
func (s *MarkerStore) Exists(_ context.Context, uri string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[uri]
	return ok, nil
}

// Upsert records marker once.
func (s *MarkerStore) Upsert(_ context.Context, marker crawler.PageMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[marker.URI] = struct{}{}
	return nil
}

// List returns all markers sorted by URI.
func (s *MarkerStore) List(_ context.Context) ([]crawler.PageMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(string) bool { return true }), nil
}

// Search returns markers matching the glob pattern.
func (s *MarkerStore) Search(_ context.Context, pattern string) ([]crawler.PageMarker, error) {
	re, err := crawler.CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(re.MatchString), nil
}

// Delete removes markers matching the glob pattern.
func (s *MarkerStore) Delete(_ context.Context, pattern string) (int, error) {
	re, err := crawler.CompileGlob(pattern)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for uri := range s.markers {
		if re.MatchString(uri) {
			delete(s.markers, uri)
			removed++
		}
	}
	return removed, nil
}

func (s *MarkerStore) sorted(keep func(string) bool) []crawler.PageMarker {
	uris := make([]string, 0, len(s.markers))
	for uri := range s.markers {
		if keep(uri) {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	out := make([]crawler.PageMarker, 0, len(uris))
	for _, uri := range uris {
		out = append(out, crawler.PageMarker{URI: uri})
	}
	return out
}
