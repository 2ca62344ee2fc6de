// Package download opens resource content streams through the fetch policy.
package download

import (
	"bytes"
	"context"
	"io"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Source is anything that can fetch a URL, typically a resilience.Fetcher.
type Source interface {
	Fetch(ctx context.Context, uri string) (fetcher.Response, error)
}

// StreamProvider implements crawler.StreamProvider.
type StreamProvider struct {
	source Source
}

// New returns a StreamProvider over source.
func New(source Source) *StreamProvider {
	return &StreamProvider{source: source}
}

// GetStream fetches uri and exposes the body as a stream.
func (p *StreamProvider) GetStream(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := p.source.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(resp.Body)), nil
}
