package repository

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

// ResourceURL is the identity of a resource in the list backend.
type ResourceURL struct {
	u *url.URL
}

func (r ResourceURL) String() string {
	if r.u == nil {
		return ""
	}
	return r.u.String()
}

// ListBackend prints resource URLs instead of storing content.
type ListBackend struct {
	mu  sync.Mutex
	out io.Writer
}

// NewListBackend writes one URL per line to out.
func NewListBackend(out io.Writer) *ListBackend {
	return &ListBackend{out: out}
}

// ID implements Backend.
func (b *ListBackend) ID(info crawler.ResourceInfo) (ResourceURL, error) {
	if info.ResourceURL == nil {
		return ResourceURL{}, fmt.Errorf("resource url is required")
	}
	return ResourceURL{u: info.ResourceURL}, nil
}

// Exists implements Backend. Nothing is ever stored, so every resource is new.
func (b *ListBackend) Exists(context.Context, ResourceURL) (bool, error) { return false, nil }

// Upsert implements Backend; the content is ignored.
func (b *ListBackend) Upsert(_ context.Context, id ResourceURL, _ io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := fmt.Fprintln(b.out, id.String()); err != nil {
		return fmt.Errorf("write resource url: %w", err)
	}
	return nil
}
