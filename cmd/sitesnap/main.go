// Package main provides the entry point for the sitesnap CLI.
//
// sitesnap crawls a website from a seed URL, fingerprints every page in
// scope and reports which pages are new, changed or unchanged since the
// previous run.
//
// Usage:
//
//	sitesnap snapshot https://example.com/docs
//	sitesnap history https://example.com/docs
//
// See --help for all available options.
package main

// main is the entry point for sitesnap.
func main() {
	Execute()
}
