// Package fetcher defines the raw fetch contract shared by page retrieval and
// resource downloads.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Response is the outcome of a single successful GET.
type Response struct {
	// URL is the final URL after redirects.
	URL        string      `json:"url"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body"`
}

// Fetcher performs one GET without any retry or caching.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (Response, error)
}

// FetchError reports a failed fetch and carries the HTTP status when one was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsClientError reports whether the server answered with a 4xx status.
func (e *FetchError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsClientError reports whether err wraps a FetchError with a 4xx status.
func IsClientError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.IsClientError()
}
