package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults through tests.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxPages is unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 0 {
			t.Errorf("expected MaxPages to be 0, got %d", cfg.MaxPages)
		}
	})

	t.Run("default Store is sqlite", func(t *testing.T) {
		t.Parallel()
		if cfg.Store != StoreSQLite {
			t.Errorf("expected Store to be %q, got %q", StoreSQLite, cfg.Store)
		}
	})

	t.Run("default Retries is 0", func(t *testing.T) {
		t.Parallel()
		if cfg.Retries != 0 {
			t.Errorf("expected Retries to be 0, got %d", cfg.Retries)
		}
	})

	t.Run("default SnapshotDir is snapshots", func(t *testing.T) {
		t.Parallel()
		if cfg.SnapshotDir != "snapshots" {
			t.Errorf("expected SnapshotDir to be 'snapshots', got %q", cfg.SnapshotDir)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com/a"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no seeds", func(c *Config) { c.Seeds = nil }, ErrNoSeed},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, ErrInvalidTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative max pages", func(c *Config) { c.MaxPages = -1 }, ErrInvalidMaxPages},
		{"negative retries", func(c *Config) { c.Retries = -1 }, ErrInvalidRetries},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"unknown store", func(c *Config) { c.Store = "redis" }, ErrUnknownStore},
		{
			"invalid site scope",
			func(c *Config) {
				c.SiteConfigs = &File{Sites: map[string]SiteConfig{"https://example.com": {Scope: "domain"}}}
			},
			ErrInvalidScope,
		},
		{
			"invalid default pattern",
			func(c *Config) {
				c.SiteConfigs = &File{Defaults: SiteConfig{IgnorePatterns: []string{"[a-"}}}
			},
			ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			UserAgent:      "default-agent",
			Timeout:        5 * time.Second,
			Headers:        map[string]string{"X-Default": "1"},
			IgnorePatterns: []string{"/private/*"},
		},
		Sites: map[string]SiteConfig{
			"https://example.com/docs": {
				Timeout:        30 * time.Second,
				Scope:          ScopeOrigin,
				Headers:        map[string]string{"X-Site": "2"},
				FollowPatterns: []string{"/docs/*"},
			},
		},
	}

	t.Run("unknown seed returns defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("https://other.com")
		if sc.UserAgent != "default-agent" {
			t.Errorf("expected default user agent, got %q", sc.UserAgent)
		}
		if sc.Timeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", sc.Timeout)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()
		sc := cf.GetSiteConfig("https://example.com/docs")
		if sc.Timeout != 30*time.Second {
			t.Errorf("expected 30s, got %v", sc.Timeout)
		}
		if sc.Scope != ScopeOrigin {
			t.Errorf("expected scope origin, got %q", sc.Scope)
		}
		if sc.UserAgent != "default-agent" {
			t.Errorf("expected inherited user agent, got %q", sc.UserAgent)
		}
		if len(sc.IgnorePatterns) != 1 || len(sc.FollowPatterns) != 1 {
			t.Errorf("expected patterns to be merged, got %v / %v", sc.IgnorePatterns, sc.FollowPatterns)
		}
		if sc.Headers["X-Default"] != "1" || sc.Headers["X-Site"] != "2" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()
		local := &File{
			Defaults: SiteConfig{Headers: map[string]string{"A": "1"}},
			Sites:    map[string]SiteConfig{"s": {Headers: map[string]string{"B": "2"}}},
		}
		_ = local.GetSiteConfig("s")
		if _, ok := local.Defaults.Headers["B"]; ok {
			t.Error("expected defaults headers to stay untouched")
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitesnap")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".sitesnap")

		content := `defaults:
  timeout: 15s
  userAgent: "custom/1.0"
sites:
  https://example.com/a:
    maxPages: 50
    scope: origin
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/a/admin/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Timeout != 15*time.Second {
			t.Errorf("expected default timeout 15s, got %v", cfg.Defaults.Timeout)
		}
		if cfg.Defaults.UserAgent != "custom/1.0" {
			t.Errorf("expected default user agent, got %q", cfg.Defaults.UserAgent)
		}

		site, ok := cfg.Sites["https://example.com/a"]
		if !ok {
			t.Fatal("expected https://example.com/a in sites")
		}
		if site.MaxPages != 50 {
			t.Errorf("expected maxPages 50, got %d", site.MaxPages)
		}
		if site.Scope != ScopeOrigin {
			t.Errorf("expected scope origin, got %q", site.Scope)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".sitesnap")

		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil {
			t.Fatal("expected error for invalid YAML")
		}
		if !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("expected parse error, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), ".sitesnap")

		if err := os.WriteFile(configPath, []byte("defaults:\n  maxPages: 25\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()
		configPath := filepath.Join(t.TempDir(), "custom.yaml")

		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"XDGDataDir":   XDGDataDir(),
		"XDGConfigDir": XDGConfigDir(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if filepath.Base(dir) != AppName {
				t.Errorf("expected %s to end with %q, got %q", name, AppName, dir)
			}
		})
	}
}
