package crawler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// linkSelector matches the elements whose href leads to another page.
const linkSelector = "a[href], area[href]"

// ParseResult holds what the crawler needs from a fetched document.
type ParseResult struct {
	// Title is the text of the <title> element (HTML) or the feed title.
	Title string

	// Base is the href of the first <base> element, empty when absent.
	// Relative links resolve against it instead of the page URL.
	Base string

	// Hrefs are the raw link targets in document order, unresolved.
	Hrefs []string
}

// ExtractLinks parses HTML and returns the href attribute of every anchor
// and image-map area, in document order. Malformed markup is tolerated the
// way browsers tolerate it.
func ExtractLinks(content io.Reader) (*ParseResult, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	result := &ParseResult{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Hrefs: make([]string, 0),
	}
	if base, ok := doc.Find("base[href]").First().Attr("href"); ok {
		result.Base = strings.TrimSpace(base)
	}

	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			result.Hrefs = append(result.Hrefs, href)
		}
	})

	return result, nil
}

// ExtractFeedLinks parses an RSS, Atom or JSON feed and returns the feed's
// own link followed by the links of its items.
func ExtractFeedLinks(content []byte) (*ParseResult, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	result := &ParseResult{
		Title: feed.Title,
		Hrefs: make([]string, 0, len(feed.Items)+1),
	}
	if feed.Link != "" {
		result.Hrefs = append(result.Hrefs, feed.Link)
	}
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		if item.Link != "" {
			result.Hrefs = append(result.Hrefs, item.Link)
		}
		for _, l := range item.Links {
			if l != "" && l != item.Link {
				result.Hrefs = append(result.Hrefs, l)
			}
		}
	}

	return result, nil
}

// documentKind classifies a Content-Type header value.
type documentKind int

const (
	kindOther documentKind = iota
	kindHTML
	kindFeed
)

// classifyContentType maps a Content-Type to the parser that understands
// it. A missing Content-Type is treated as HTML.
func classifyContentType(contentType string) documentKind {
	if strings.TrimSpace(contentType) == "" {
		return kindHTML
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return kindHTML
	case "application/rss+xml", "application/atom+xml", "application/feed+json",
		"application/xml", "text/xml":
		return kindFeed
	default:
		return kindOther
	}
}

// parseDocument extracts links from a body according to its content type.
// Bodies that are neither HTML nor a feed yield an empty result.
func parseDocument(contentType string, body []byte) (*ParseResult, error) {
	switch classifyContentType(contentType) {
	case kindHTML:
		return ExtractLinks(bytes.NewReader(body))
	case kindFeed:
		return ExtractFeedLinks(body)
	default:
		return &ParseResult{}, nil
	}
}
