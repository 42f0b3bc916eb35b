package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("returns body and content type", func(t *testing.T) {
		t.Parallel()
		var gotUA, gotHeader string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotHeader = r.Header.Get("X-Test")
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>hello</html>")) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(
			WithHTTPClient(server.Client()),
			WithUserAgent("tester/1.0"),
			WithHeaders(map[string]string{"X-Test": "yes"}),
		)
		resp, err := f.Fetch(context.Background(), NormalizedURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "<html>hello</html>" {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if resp.ContentType != "text/html" {
			t.Errorf("unexpected content type %q", resp.ContentType)
		}
		if gotUA != "tester/1.0" || gotHeader != "yes" {
			t.Errorf("expected custom headers, got UA=%q X-Test=%q", gotUA, gotHeader)
		}
	})

	t.Run("non-2xx is a fetch failure", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(WithHTTPClient(server.Client())).Fetch(context.Background(), NormalizedURL(server.URL))
		if !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		var fe *FetchError
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected FetchError with 404, got %v", err)
		}
	})

	t.Run("timeout is a fetch failure", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		f := NewHTTPFetcher(WithHTTPClient(server.Client()), WithFetchTimeout(50*time.Millisecond))
		_, err := f.Fetch(context.Background(), NormalizedURL(server.URL))
		if !errors.Is(err, ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
	})

	t.Run("connection refused is a fetch failure", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewHTTPFetcher().Fetch(context.Background(), NormalizedURL(addr))
		if !errors.Is(err, ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
	})

	t.Run("body over the limit fails without retry", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("0123456789")) //nolint:errcheck
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(WithHTTPClient(server.Client()), WithMaxBodySize(4), WithRetries(2), WithBackoff(time.Millisecond, time.Millisecond)).
			Fetch(context.Background(), NormalizedURL(server.URL))
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("expected ErrBodyTooLarge, got %v", err)
		}
		if !errors.Is(err, ErrFetchFailed) {
			t.Errorf("expected ErrFetchFailed, got %v", err)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("expected a single attempt, got %d", got)
		}
	})

	t.Run("body at the limit is read whole", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("0123")) //nolint:errcheck
		}))
		defer server.Close()

		resp, err := NewHTTPFetcher(WithHTTPClient(server.Client()), WithMaxBodySize(4)).
			Fetch(context.Background(), NormalizedURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "0123" {
			t.Errorf("expected full body, got %q", resp.Body)
		}
	})

	t.Run("zero limit reads everything", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("0123456789")) //nolint:errcheck
		}))
		defer server.Close()

		resp, err := NewHTTPFetcher(WithHTTPClient(server.Client()), WithMaxBodySize(0)).
			Fetch(context.Background(), NormalizedURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "0123456789" {
			t.Errorf("expected full body, got %q", resp.Body)
		}
	})

	t.Run("reports final url after redirect", func(t *testing.T) {
		t.Parallel()
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new/", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("moved")) //nolint:errcheck
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := NewHTTPFetcher(WithHTTPClient(server.Client())).
			Fetch(context.Background(), NormalizedURL(server.URL+"/old"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.URL.Path != "/new/" {
			t.Errorf("expected final path /new/, got %q", resp.URL.Path)
		}
	})
}

func TestHTTPFetcherRetries(t *testing.T) {
	t.Parallel()

	t.Run("retries 5xx until success", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := NewHTTPFetcher(
			WithHTTPClient(server.Client()),
			WithRetries(3),
			WithBackoff(time.Millisecond, 5*time.Millisecond),
		)
		resp, err := f.Fetch(context.Background(), NormalizedURL(server.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Body) != "ok" {
			t.Errorf("unexpected body %q", resp.Body)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		f := NewHTTPFetcher(
			WithHTTPClient(server.Client()),
			WithRetries(3),
			WithBackoff(time.Millisecond, 5*time.Millisecond),
		)
		if _, err := f.Fetch(context.Background(), NormalizedURL(server.URL)); !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("expected ErrFetchFailed, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single attempt, got %d", calls.Load())
		}
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := NewHTTPFetcher(
			WithHTTPClient(server.Client()),
			WithRetries(2),
			WithBackoff(time.Millisecond, 5*time.Millisecond),
		)
		_, err := f.Fetch(context.Background(), NormalizedURL(server.URL))
		var fe *FetchError
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected FetchError with 502, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})
}
