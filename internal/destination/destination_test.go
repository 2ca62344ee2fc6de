package destination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/page"
	"github.com/JakeFAU/scrapper/internal/storage"
)

func resource(t *testing.T, pageURL, resourceURL string, pageIndex, resourceIndex int) crawler.ResourceInfo {
	t.Helper()
	pu, err := url.Parse(pageURL)
	require.NoError(t, err)
	ru, err := url.Parse(resourceURL)
	require.NoError(t, err)
	return crawler.ResourceInfo{
		Page:          page.New(pu, nil, &html.Node{Type: html.DocumentNode}),
		PageIndex:     pageIndex,
		ResourceURL:   ru,
		ResourceIndex: resourceIndex,
	}
}

func TestCompileRejectsInvalidTemplates(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "   ", "{{ .Resource.FileName", "{{ now }}", "{{ randAlphaNum 5 }}", "{{ uuidv4 }}"} {
		_, err := Compile(expr)
		assert.ErrorIs(t, err, crawler.ErrConfiguration, expr)
	}
}

func TestPathFromResourceAttributes(t *testing.T) {
	t.Parallel()

	c, err := Compile(`{{ .Resource.Host }}/{{ .Resource.Dir }}/{{ .PageIndex }}-{{ .ResourceIndex }}{{ .Resource.Ext }}`)
	require.NoError(t, err)

	got, err := c.Path(resource(t, "http://example.com/list.html", "http://cdn.example.com/files/2024/report.PDF?x=1", 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "cdn.example.com/files/2024/3-1.PDF", got)
}

func TestPathUsesSprigHelpers(t *testing.T) {
	t.Parallel()

	c, err := Compile(`{{ .Page.Host | replace "." "_" }}/{{ .Resource.FileName | lower }}`)
	require.NoError(t, err)

	got, err := c.Path(resource(t, "http://www.example.com/", "http://www.example.com/a/Report.pdf", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "www_example_com/report.pdf", got)
}

func TestPathIsDeterministic(t *testing.T) {
	t.Parallel()

	c, err := Compile(`{{ .Resource.Path | sha256sum | trunc 8 }}/{{ .Resource.FileName }}`)
	require.NoError(t, err)
	info := resource(t, "http://example.com/", "http://example.com/docs/a.pdf", 2, 4)

	first, err := c.Path(info)
	require.NoError(t, err)
	second, err := c.Path(info)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPathNormalizesAndGuardsRoot(t *testing.T) {
	t.Parallel()

	c, err := Compile(`{{ .Resource.Path }}`)
	require.NoError(t, err)
	got, err := c.Path(resource(t, "http://example.com/", "http://example.com//a/./b.pdf", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "a/b.pdf", got)

	escape, err := Compile(`../{{ .Resource.FileName }}`)
	require.NoError(t, err)
	_, err = escape.Path(resource(t, "http://example.com/", "http://example.com/b.pdf", 0, 0))
	assert.ErrorIs(t, err, storage.ErrInvalidPath)

	empty, err := Compile(`{{ .Resource.FileName }}`)
	require.NoError(t, err)
	_, err = empty.Path(resource(t, "http://example.com/", "http://example.com/dir/", 0, 0))
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestNewDataForDirectoryURL(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("http://example.com/a/b/")
	require.NoError(t, err)
	d := newURLData(u)
	assert.Equal(t, "a/b", d.Dir)
	assert.Equal(t, "", d.FileName)
	assert.Equal(t, []string{"a", "b"}, d.Segments)
}
