package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/sitesnap/internal/fingerprint"
	"github.com/nao1215/sitesnap/internal/model"
)

// Spider runs change-detection crawls. One Run walks every in-scope page
// reachable from a seed, sequentially, and records each page's fingerprint.
//
// A Spider holds configuration only; each Run has its own Frontier, so one
// Spider may serve several runs, even concurrently.
type Spider struct {
	fetcher Fetcher
	store   *fingerprint.Store

	// maxPages stops a run after this many pages. 0 means no limit.
	maxPages int

	// originOnly widens the scope from the seed path to the whole origin.
	originOnly bool

	// ignorePatterns are URL path globs that are never crawled.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs that are crawled.
	followPatterns []string

	// observer receives every page result as soon as it is known.
	observer func(model.PageResult)

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages limits the number of pages visited per run.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithOriginScope makes every URL on the seed's origin in scope, not only
// those below the seed path.
func WithOriginScope(originOnly bool) SpiderOption {
	return func(s *Spider) {
		s.originOnly = originOnly
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// The seed itself is always visited.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithObserver registers a callback invoked once per visited page, in
// visit order, from the goroutine running the crawl.
func WithObserver(fn func(model.PageResult)) SpiderOption {
	return func(s *Spider) {
		s.observer = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = l
	}
}

// NewSpider creates a Spider that fetches with f and records fingerprints
// in store.
func NewSpider(f Fetcher, store *fingerprint.Store, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  f,
		store:    store,
		observer: func(model.PageResult) {},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run crawls from seed until the frontier is empty.
//
// A page that cannot be fetched is recorded as FetchFailed and the run goes
// on. A fingerprint store failure aborts the run: the partial report is
// returned together with an error matching fingerprint.ErrStoreIO. When ctx
// is cancelled the partial report is returned with ctx.Err().
func (s *Spider) Run(ctx context.Context, seed string) (*model.RunReport, error) {
	seedURL, err := Normalize(seed, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", seed, err)
	}
	scope, err := NewScope(seedURL, s.originOnly)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", seed, err)
	}

	frontier := NewFrontier(seedURL)
	report := model.NewRunReport(string(seedURL))
	s.logger.Info("crawl started", "seed", string(seedURL))

	for frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return s.interrupt(report, err)
		}
		if s.maxPages > 0 && len(report.Pages) >= s.maxPages {
			report.Truncated = true
			s.logger.Warn("page limit reached, stopping crawl",
				"seed", string(seedURL), "max_pages", s.maxPages, "pending", frontier.Len())
			break
		}

		u, _ := frontier.Pop()
		result, err := s.visit(ctx, u, scope, frontier)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, fingerprint.ErrStoreIO) {
				return s.interrupt(report, ctxErr)
			}
			report.Error = err.Error()
			report.Finish()
			return report, err
		}

		report.Add(result)
		s.observer(result)
	}

	report.Finish()
	s.logger.Info("crawl finished",
		"seed", string(seedURL), "pages", len(report.Pages), "changed", report.Changed,
		"duration", report.Duration())
	return report, nil
}

func (s *Spider) interrupt(report *model.RunReport, err error) (*model.RunReport, error) {
	report.Interrupted = true
	report.Error = err.Error()
	report.Finish()
	s.logger.Warn("crawl interrupted", "seed", report.Seed, "pages", len(report.Pages), "error", err)
	return report, err
}

// visit fetches one page, records its fingerprint and pushes its links.
// The returned error is either a store failure or a cancellation.
func (s *Spider) visit(ctx context.Context, u NormalizedURL, scope *Scope, frontier *Frontier) (model.PageResult, error) {
	result := model.PageResult{URL: string(u)}
	start := time.Now()

	resp, err := s.fetcher.Fetch(ctx, u)
	result.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Status = model.StatusFetchFailed
		result.Error = err.Error()
		var fe *FetchError
		if errors.As(err, &fe) {
			result.StatusCode = fe.StatusCode
		}
		s.logger.Warn("fetch failed", "url", string(u), "error", err)
		return result, nil
	}
	result.StatusCode = resp.StatusCode
	result.ContentType = resp.ContentType

	obs, err := s.store.Observe(ctx, StorageKey(u), resp.Body)
	if err != nil {
		return result, fmt.Errorf("failed to record %s: %w", u, err)
	}
	result.Status = obs.Status
	result.Hash = string(obs.Hash)
	result.PreviousHash = string(obs.Previous)

	result.Links, result.Title = s.discover(u, resp, scope, frontier)
	s.logger.Debug("page visited", "url", string(u), "status", result.Status.String(), "links", result.Links)
	return result, nil
}

// discover extracts the links of a fetched page and pushes those in scope.
// It returns the number of in-scope links found and the document title.
func (s *Spider) discover(u NormalizedURL, resp *Response, scope *Scope, frontier *Frontier) (int, string) {
	parsed, err := parseDocument(resp.ContentType, resp.Body)
	if err != nil {
		s.logger.Debug("no links extracted", "url", string(u), "error", err)
		return 0, ""
	}

	base := resp.URL
	if base == nil {
		if base, err = u.Parse(); err != nil {
			return 0, parsed.Title
		}
	}
	if parsed.Base != "" {
		if ref, err := url.Parse(parsed.Base); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	found := 0
	for _, href := range parsed.Hrefs {
		link, err := Normalize(href, base)
		if err != nil {
			s.logger.Debug("dropping link", "href", href, "error", err)
			continue
		}
		if !scope.Contains(link) || !s.shouldCrawl(link) {
			continue
		}
		found++
		frontier.Push(link)
	}
	return found, parsed.Title
}
