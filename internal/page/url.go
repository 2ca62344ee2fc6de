package page

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so equal pages share one key.
// It lowercases the scheme and host, removes default ports and drops the fragment.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}
	return canonical(u).String(), nil
}

func canonical(u *url.URL) *url.URL {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	if c.Scheme == "http" && strings.HasSuffix(c.Host, ":80") {
		c.Host = strings.TrimSuffix(c.Host, ":80")
	}
	if c.Scheme == "https" && strings.HasSuffix(c.Host, ":443") {
		c.Host = strings.TrimSuffix(c.Host, ":443")
	}
	if (c.Scheme == "http" || c.Scheme == "https") && c.Path == "" {
		c.Path = "/"
	}
	c.Fragment = ""
	c.RawFragment = ""
	return &c
}

func followable(u *url.URL) bool {
	switch u.Scheme {
	case "http", "https", "file":
		return true
	default:
		return false
	}
}
