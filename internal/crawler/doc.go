// Package crawler implements recursive change-detection crawling of one site.
//
// # Architecture
//
// The Spider coordinates a run. It pops URLs from a Frontier, fetches each
// through a Fetcher, records the page's fingerprint in a fingerprint.Store
// and pushes the in-scope links it finds back onto the Frontier. The run
// ends when the Frontier is empty.
//
// # Components
//
//   - Normalize: canonical form of a URL, used for deduplication and as the
//     basis of the storage key
//   - Scope: decides whether a discovered URL belongs to the seed's site
//   - Frontier: FIFO work queue that never hands out a URL twice
//   - HTTPFetcher: GET with a per-fetch timeout and optional retries
//   - ExtractLinks / ExtractFeedLinks: hrefs from HTML and from RSS/Atom feeds
//   - Spider: the sequential crawl loop
//
// # Failure handling
//
// A page that cannot be fetched (network error, timeout, non-2xx) is
// recorded as FetchFailed and contributes no links. A fingerprint store
// failure stops the run.
//
// # Usage
//
//	store := fingerprint.NewStore(fingerprint.NewDirBackend("snapshots"))
//	spider := crawler.NewSpider(crawler.NewHTTPFetcher(), store)
//	report, err := spider.Run(ctx, "https://example.com/docs")
package crawler
