// Package collyfetcher implements fetcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// MaxBodyBytes caps the response body; zero means unlimited.
	MaxBodyBytes int
	// FileRoot is the directory served for file:// URLs. Empty means "/".
	FileRoot string
}

// Fetcher implements fetcher.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.MaxBodySize = cfg.MaxBodyBytes
	c.WithTransport(newHTTPTransport(cfg.FileRoot))
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP (or file) GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (fetcher.Response, error) {
	target, err := url.Parse(uri)
	if err != nil {
		return fetcher.Response{}, &fetcher.FetchError{URL: uri, Err: err}
	}

	var (
		result    fetcher.Response
		status    int
		failure   error
		responded bool
	)
	collector := f.buildCollector(target)
	collector.OnResponse(func(r *colly.Response) {
		responded = true
		result = fetcher.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
		if r.Headers != nil {
			result.Header = r.Headers.Clone()
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		failure = err
	})

	if err := f.runCollector(ctx, collector, uri); err != nil {
		if ctx.Err() != nil {
			return fetcher.Response{}, err
		}
		if failure == nil {
			failure = err
		}
	}
	if failure != nil {
		if errors.Is(failure, context.Canceled) || errors.Is(failure, context.DeadlineExceeded) {
			return fetcher.Response{}, failure
		}
		return fetcher.Response{}, &fetcher.FetchError{URL: uri, StatusCode: status, Err: failure}
	}
	if !responded {
		return fetcher.Response{}, &fetcher.FetchError{URL: uri, Err: errors.New("colly fetch produced no result")}
	}
	return result, nil
}

func (f *Fetcher) buildCollector(target *url.URL) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots || target.Scheme == "file"
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	return collector
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, uri string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(uri)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport(fileRoot string) *http.Transport {
	if fileRoot == "" {
		fileRoot = "/"
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir(fileRoot)))
	return t
}
