package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"time"
)

// SiteConfig holds settings for a single seed.
type SiteConfig struct {
	// Headers are custom HTTP headers sent with every request for this seed.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Timeout overrides the per-fetch timeout. Zero keeps the global value.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxPages overrides the global page limit. Zero keeps the global value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Scope is "path" (default) or "origin".
	Scope string `yaml:"scope,omitempty"`

	// IgnorePatterns are glob patterns matched against the URL path.
	// Matching URLs are not crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are glob patterns matched against the URL path.
	// If specified, only matching URLs are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// Validate reports an invalid scope or malformed glob pattern.
func (sc SiteConfig) Validate() error {
	switch sc.Scope {
	case "", ScopePath, ScopeOrigin:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, sc.Scope)
	}
	for _, p := range append(append([]string{}, sc.IgnorePatterns...), sc.FollowPatterns...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

// File represents the structure of the .sitesnap configuration file.
type File struct {
	// Sites maps seed URLs to their configuration.
	// Keys are matched against the seed exactly as given on the command line.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every seed unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a seed, merging the
// seed-specific entry over the defaults.
func (cf *File) GetSiteConfig(seed string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[seed]
	if !ok {
		return result
	}

	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Timeout != 0 {
		result.Timeout = siteConfig.Timeout
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.Scope != "" {
		result.Scope = siteConfig.Scope
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}
