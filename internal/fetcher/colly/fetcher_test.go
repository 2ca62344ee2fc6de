package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scrapper/internal/fetcher"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "scrapper-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "scrapper-test", Timeout: time.Second})
	resp, err := f.Fetch(context.Background(), srv.URL+"/index.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL+"/index.html", resp.URL)
	assert.Contains(t, string(resp.Body), "ok")
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestFetchAllowsRevisits(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "again")
	}))
	defer srv.Close()

	f := New(Config{Timeout: time.Second})
	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchReportsStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		clientError bool
	}{
		{name: "not found", status: http.StatusNotFound, clientError: true},
		{name: "server error", status: http.StatusInternalServerError, clientError: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			f := New(Config{Timeout: time.Second})
			_, err := f.Fetch(context.Background(), srv.URL)
			require.Error(t, err)

			var fe *fetcher.FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.status, fe.StatusCode)
			assert.Equal(t, tc.clientError, fe.IsClientError())
		})
	}
}

func TestFetchReadsFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>local</p>"), 0o600))

	f := New(Config{FileRoot: dir})
	resp, err := f.Fetch(context.Background(), "file:///index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>local</p>", string(resp.Body))
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildCollectorIgnoresRobotsForFiles(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "agent", RespectRobots: true})
	target, err := http.NewRequest(http.MethodGet, "file:///a.html", nil)
	require.NoError(t, err)
	collector := f.buildCollector(target.URL)
	assert.True(t, collector.IgnoreRobotsTxt)
	assert.Equal(t, "agent", collector.UserAgent)

	target, err = http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	assert.False(t, f.buildCollector(target.URL).IgnoreRobotsTxt)
}
