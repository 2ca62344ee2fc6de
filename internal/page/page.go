// Package page wraps fetched documents and retrieves them through the fetch
// resilience policy.
package page

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// ErrInvalidXPath wraps XPath compilation failures.
var ErrInvalidXPath = errors.New("invalid xpath")

// Page is a fetched, parsed document. Two pages with the same Key are interchangeable.
type Page struct {
	uri       *url.URL
	base      *url.URL
	doc       *html.Node
	retriever *Retriever
}

// New builds a Page from an already parsed document. finalURL is the URL the
// document was actually served from and seeds relative link resolution.
func New(uri *url.URL, finalURL *url.URL, doc *html.Node) *Page {
	p := &Page{uri: canonical(uri), doc: doc}
	p.base = p.uri
	if finalURL != nil {
		p.base = finalURL
	}
	if n := htmlquery.FindOne(doc, "//base[@href]"); n != nil {
		if ref, err := p.base.Parse(htmlquery.SelectAttr(n, "href")); err == nil {
			p.base = ref
		}
	}
	return p
}

// URI returns a copy of the page's canonical URI.
func (p *Page) URI() *url.URL {
	u := *p.uri
	return &u
}

// Key is the absolute URI used for equality and visited tracking.
func (p *Page) Key() string { return p.uri.String() }

// Reload fetches the page again, bypassing the response cache.
func (p *Page) Reload(ctx context.Context) (*Page, error) {
	if p.retriever == nil {
		return nil, fmt.Errorf("page %s has no retriever", p.Key())
	}
	return p.retriever.Recreate(ctx, p)
}

// Links returns the absolute URLs selected by expr. When attr is empty the
// inner text of each match is used, which covers attribute selections such as
// //a/@href. Non-followable schemes are dropped.
func (p *Page) Links(expr, attr string) ([]*url.URL, error) {
	values, err := p.Attributes(expr, attr)
	if err != nil {
		return nil, err
	}
	links := make([]*url.URL, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		ref, err := p.base.Parse(v)
		if err != nil || !followable(ref) {
			continue
		}
		links = append(links, canonical(ref))
	}
	return links, nil
}

// Texts returns the inner text of every node selected by expr, in document order.
func (p *Page) Texts(expr string) ([]string, error) {
	nodes, err := p.query(expr)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, htmlquery.InnerText(n))
	}
	return out, nil
}

// Attributes returns attr of every node selected by expr; nodes without the
// attribute are skipped. An empty attr falls back to inner text.
func (p *Page) Attributes(expr, attr string) ([]string, error) {
	if attr == "" {
		return p.Texts(expr)
	}
	nodes, err := p.query(expr)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if hasAttr(n, attr) {
			out = append(out, htmlquery.SelectAttr(n, attr))
		}
	}
	return out, nil
}

func (p *Page) query(expr string) ([]*html.Node, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return htmlquery.QuerySelectorAll(p.doc, compiled), nil
}

func hasAttr(n *html.Node, attr string) bool {
	for _, a := range n.Attr {
		if a.Key == attr {
			return true
		}
	}
	return false
}

var compiled sync.Map

// Compile parses an XPath expression, memoizing the result.
func Compile(expr string) (*xpath.Expr, error) {
	if v, ok := compiled.Load(expr); ok {
		return v.(*xpath.Expr), nil
	}
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidXPath, expr, err)
	}
	compiled.Store(expr, e)
	return e, nil
}
