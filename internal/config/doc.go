// Package config provides configuration structures and utilities for sitesnap.
// It defines the crawl settings, the fingerprint store selection, report
// preferences and the per-seed overrides read from the .sitesnap file.
package config
