// Package pipeline runs crawls of one or more seeds.
//
// A Pipeline executes Steps in order over a Job. The usual pipeline for a
// seed is a CrawlStep, which runs a crawler.Spider, followed by a
// SaveRunStep, which appends the run to the SQLite history.
//
// BatchProcessor runs one pipeline per seed with bounded concurrency
// using errgroup.
package pipeline
