package page

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Source is the policy-wrapped fetcher used by the Retriever.
type Source interface {
	Fetch(ctx context.Context, uri string) (fetcher.Response, error)
	// Refetch bypasses any response cache.
	Refetch(ctx context.Context, uri string) (fetcher.Response, error)
}

// Retriever fetches and parses pages.
type Retriever struct {
	source Source
	logger *zap.Logger
}

// NewRetriever builds a Retriever over source.
func NewRetriever(source Source, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{source: source, logger: logger}
}

// GetPage fetches uri and parses it.
func (r *Retriever) GetPage(ctx context.Context, uri string) (*Page, error) {
	target, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	resp, err := r.source.Fetch(ctx, canonical(target).String())
	if err != nil {
		return nil, err
	}
	return r.build(target, resp)
}

// Recreate fetches the page again from scratch, bypassing the response cache.
func (r *Retriever) Recreate(ctx context.Context, p *Page) (*Page, error) {
	r.logger.Debug("recreating page", zap.String("url", p.Key()))
	resp, err := r.source.Refetch(ctx, p.Key())
	if err != nil {
		return nil, err
	}
	return r.build(p.URI(), resp)
}

func (r *Retriever) build(target *url.URL, resp fetcher.Response) (*Page, error) {
	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}
	doc, err := htmlquery.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	var final *url.URL
	if resp.URL != "" {
		if u, err := url.Parse(resp.URL); err == nil {
			final = u
		}
	}
	p := New(target, final, doc)
	p.retriever = r
	return p, nil
}
