// Package model defines the data structures shared by the crawler, the
// fingerprint store, the database and the report writers.
//
// This package contains the following main types:
//   - Status: the outcome of visiting a page (New, Changed, Unchanged, FetchFailed)
//   - PageResult: what happened to one URL during a run
//   - RunReport: every PageResult of one run plus its summary
//
// The models are serializable to JSON for report output and database storage.
package model
