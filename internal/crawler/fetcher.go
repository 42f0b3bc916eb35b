package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrFetchFailed matches every error returned by a Fetcher for a page that
// could not be retrieved. Such a failure is recorded and the crawl goes on.
var ErrFetchFailed = errors.New("fetch failed")

// ErrBodyTooLarge is the cause of a FetchError for a body over the size
// limit. A cut body would hash as unchanged, so the page is not recorded.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// FetchError describes a failed fetch.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of a non-2xx response, 0 otherwise.
	StatusCode int

	// Err is the underlying transport error, nil for a non-2xx response.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap allows errors.Is to match both ErrFetchFailed and the cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}

// temporary reports whether another attempt could succeed.
func (e *FetchError) temporary() bool {
	if e.StatusCode != 0 {
		return e.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, ErrBodyTooLarge)
}

// Response is a successfully fetched page.
type Response struct {
	// URL is the final URL after redirects.
	URL *url.URL

	// StatusCode is the 2xx status of the response.
	StatusCode int

	// ContentType is the Content-Type header.
	ContentType string

	// Body holds the raw bytes.
	Body []byte
}

// Fetcher retrieves the raw bytes of a URL. Any non-2xx response, network
// error or timeout is returned as an error matching ErrFetchFailed.
type Fetcher interface {
	Fetch(ctx context.Context, u NormalizedURL) (*Response, error)
}

// Default HTTPFetcher settings.
const (
	DefaultFetchTimeout    = 10 * time.Second
	DefaultMaxBodySize     = 10 * 1024 * 1024 // 10MB
	DefaultUserAgent       = "sitesnap/1.0"
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
)

// HTTPFetcher fetches pages over HTTP(S). Redirects are followed by the
// underlying client.
type HTTPFetcher struct {
	client          *http.Client
	timeout         time.Duration
	userAgent       string
	headers         map[string]string
	maxBodySize     int64
	retries         uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithFetchTimeout bounds each fetch attempt.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds custom request headers.
func WithHeaders(h map[string]string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.headers = h
	}
}

// WithMaxBodySize caps the number of body bytes read per page. A larger
// body fails with ErrBodyTooLarge. 0 disables the limit.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = n
	}
}

// WithRetries sets how many times a fetch that failed with a network error
// or a 5xx response is retried. 4xx responses are never retried.
func WithRetries(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.retries = uint64(n)
		}
	}
}

// WithBackoff sets the exponential backoff bounds between retries.
func WithBackoff(initial, maxInterval time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.initialInterval = initial
		f.maxInterval = maxInterval
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

// NewHTTPFetcher creates a fetcher with a 10 second timeout and no retries.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:          &http.Client{},
		timeout:         DefaultFetchTimeout,
		userAgent:       DefaultUserAgent,
		maxBodySize:     DefaultMaxBodySize,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, u NormalizedURL) (*Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialInterval
	b.MaxInterval = f.maxInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx)

	var resp *Response
	attempt := 0
	op := func() error {
		attempt++
		r, err := f.fetchOnce(ctx, u)
		if err == nil {
			resp = r
			return nil
		}
		var fe *FetchError
		if errors.As(err, &fe) && fe.temporary() && ctx.Err() == nil {
			if uint64(attempt) <= f.retries {
				f.logger.Debug("retrying fetch", "url", string(u), "attempt", attempt, "error", err)
			}
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, bo); err != nil {
		var pErr *backoff.PermanentError
		if errors.As(err, &pErr) {
			err = pErr.Err
		}
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{URL: string(u), Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// fetchOnce performs a single GET bounded by the fetch timeout.
func (f *HTTPFetcher) fetchOnce(ctx context.Context, u NormalizedURL) (*Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(u), nil)
	if err != nil {
		return nil, &FetchError{URL: string(u), Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: string(u), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		return nil, &FetchError{URL: string(u), StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if f.maxBodySize > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodySize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: string(u), Err: err}
	}
	if f.maxBodySize > 0 && int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{
			URL: string(u),
			Err: fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize),
		}
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return &Response{
		URL:         final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
