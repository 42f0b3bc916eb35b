package model

import "time"

// PageResult records what happened to one URL during a run.
type PageResult struct {
	// URL is the normalized URL that was popped from the frontier.
	URL string `json:"url"`

	// Status is the classification of the visit.
	Status Status `json:"status"`

	// Hash is the lowercase hex SHA-256 of the fetched body.
	// Empty when the fetch failed.
	Hash string `json:"hash,omitempty"`

	// PreviousHash is the fingerprint recorded by the previous run.
	// Empty for new pages and failed fetches.
	PreviousHash string `json:"previous_hash,omitempty"`

	// StatusCode is the HTTP status code, 0 when no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the document title, empty when none was found.
	Title string `json:"title,omitempty"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// Links is the number of in-scope URLs discovered on the page,
	// before deduplication against the frontier.
	Links int `json:"links"`

	// Error describes the fetch failure.
	Error string `json:"error,omitempty"`

	// Duration is the time spent fetching the page.
	Duration time.Duration `json:"duration_ns"`
}
