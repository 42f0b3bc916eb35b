package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for input that cannot be a crawlable URL:
// malformed strings, non-HTTP schemes such as mailto: or javascript:,
// and URLs without a host.
var ErrInvalidURL = errors.New("invalid url")

// NormalizedURL is an absolute http(s) URL in canonical form: no fragment
// and no trailing slash on the path. Two URLs that differ only in those
// respects normalize to the same value.
type NormalizedURL string

// String implements fmt.Stringer.
func (u NormalizedURL) String() string {
	return string(u)
}

// Parse returns the parsed form of the URL.
func (u NormalizedURL) Parse() (*url.URL, error) {
	return url.Parse(string(u))
}

// Normalize resolves raw against base and returns its canonical form.
// base may be nil when raw is absolute.
//
// Scheme, host, query and path casing are left as they are. The trailing
// slashes of the path are removed, so "/a/" and "/a" are the same page and
// "https://example.com/" becomes "https://example.com". Normalize is
// idempotent.
func Normalize(raw string, base *url.URL) (NormalizedURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" || u.Opaque != "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}

	u.Fragment = ""
	u.RawFragment = ""

	// Trim on the escaped form so an encoded %2F is never mistaken for a
	// separator.
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}
	u.Path = path
	u.RawPath = escaped

	return NormalizedURL(u.String()), nil
}

// StorageKey maps a normalized URL to a filesystem-safe key.
// Every byte outside [A-Za-z0-9._~-] is percent-escaped, so the mapping is
// lossless and two distinct URLs never share a key.
func StorageKey(u NormalizedURL) string {
	return url.QueryEscape(string(u))
}

// URLFromStorageKey is the inverse of StorageKey.
func URLFromStorageKey(key string) (NormalizedURL, error) {
	s, err := url.QueryUnescape(key)
	if err != nil {
		return "", fmt.Errorf("invalid storage key %q: %w", key, err)
	}
	return NormalizedURL(s), nil
}

// Scope decides whether a discovered URL belongs to the crawl.
//
// A URL is in scope when it has the seed's scheme and host (port included)
// and its path is the seed path or lies below it. "/a/b" is below "/a",
// "/about" is not. A seed at the origin root covers the whole origin.
// Query strings play no part.
type Scope struct {
	scheme     string
	host       string
	path       string
	originOnly bool
}

// NewScope builds the scope of a normalized seed. When originOnly is set the
// seed path is ignored and any URL on the seed's origin is in scope.
func NewScope(seed NormalizedURL, originOnly bool) (*Scope, error) {
	u, err := seed.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, err.Error())
	}
	return &Scope{
		scheme:     u.Scheme,
		host:       u.Host,
		path:       u.EscapedPath(),
		originOnly: originOnly,
	}, nil
}

// Contains reports whether u is within the scope.
func (s *Scope) Contains(u NormalizedURL) bool {
	parsed, err := u.Parse()
	if err != nil {
		return false
	}
	if parsed.Scheme != s.scheme || !strings.EqualFold(parsed.Host, s.host) {
		return false
	}
	if s.originOnly || s.path == "" {
		return true
	}
	p := parsed.EscapedPath()
	return p == s.path || strings.HasPrefix(p, s.path+"/")
}
