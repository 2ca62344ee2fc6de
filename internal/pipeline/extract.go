package pipeline

import (
	"context"
	"io"
	"strings"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/page"
)

// Item is one extracted resource plus a way to open its content.
type Item struct {
	Info crawler.ResourceInfo
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Extractor finds the resources of a page. It is what differs between the
// download and text pipelines.
type Extractor interface {
	Extract(job crawler.Job, p *page.Page, pageIndex int) ([]Item, error)
}

// DownloadExtractor emits one item per resource link; content is downloaded on demand.
type DownloadExtractor struct {
	Streams crawler.StreamProvider
}

// Extract implements Extractor.
func (e DownloadExtractor) Extract(job crawler.Job, p *page.Page, pageIndex int) ([]Item, error) {
	found, err := p.Links(job.ResourceXPath, job.ResourceAttribute)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(found))
	for i, u := range found {
		target := u.String()
		items = append(items, Item{
			Info: crawler.ResourceInfo{Page: p, PageIndex: pageIndex, ResourceURL: u, ResourceIndex: i},
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return e.Streams.GetStream(ctx, target)
			},
		})
	}
	return items, nil
}

// TextExtractor emits the non-blank text of every matched node. The resource
// URL is the page itself and indexes count only kept texts.
type TextExtractor struct{}

// Extract implements Extractor.
func (TextExtractor) Extract(job crawler.Job, p *page.Page, pageIndex int) ([]Item, error) {
	texts, err := p.Texts(job.ResourceXPath)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		content := text
		items = append(items, Item{
			Info: crawler.ResourceInfo{Page: p, PageIndex: pageIndex, ResourceURL: p.URI(), ResourceIndex: len(items)},
			Open: func(context.Context) (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(content)), nil
			},
		})
	}
	return items, nil
}

// lazyReader defers opening the content until the first Read, so repositories
// that never consume the stream never trigger a download.
type lazyReader struct {
	ctx  context.Context
	open func(ctx context.Context) (io.ReadCloser, error)
	rc   io.ReadCloser
	err  error
}

func newLazyReader(ctx context.Context, open func(ctx context.Context) (io.ReadCloser, error)) *lazyReader {
	return &lazyReader{ctx: ctx, open: open}
}

func (r *lazyReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.rc == nil {
		rc, err := r.open(r.ctx)
		if err != nil {
			r.err = err
			return 0, err
		}
		r.rc = rc
	}
	return r.rc.Read(p)
}

// Close closes the underlying stream if it was opened.
func (r *lazyReader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}
