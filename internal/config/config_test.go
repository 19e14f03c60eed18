package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("GAMEDB_CLIENT_ID", "id")
	t.Setenv("GAMEDB_CLIENT_SECRET", "secret")

	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.RateLimit.RequestsPerSecond != defaultRequestsPerSecond {
		t.Errorf("requests_per_second = %d, want %d", cfg.RateLimit.RequestsPerSecond, defaultRequestsPerSecond)
	}
	if cfg.Pipeline.BatchSize != defaultBatchSize {
		t.Errorf("batch_size = %d, want %d", cfg.Pipeline.BatchSize, defaultBatchSize)
	}
	if cfg.GameDB.ClientID != "id" || cfg.GameDB.ClientSecret != "secret" {
		t.Errorf("env credentials not applied: %+v", cfg.GameDB)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
[gamedb]
client_id = "abc"
client_secret = "def"

[rate_limit]
requests_per_second = 2
max_concurrency = 8

[pipeline]
batch_size = 10
checkpoint_threshold = 25
lazy_download = true

[platforms]
".SFC" = "SNES"
`)
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatal("expected config file to be found")
	}
	if cfg.RateLimit.RequestsPerSecond != 2 || cfg.RateLimit.MaxConcurrency != 8 {
		t.Errorf("rate limit overrides not applied: %+v", cfg.RateLimit)
	}
	if !cfg.Pipeline.LazyDownload || cfg.Pipeline.CheckpointThreshold != 25 {
		t.Errorf("pipeline overrides not applied: %+v", cfg.Pipeline)
	}
	if cfg.Platforms["sfc"] != "snes" {
		t.Errorf("platform override not normalized: %v", cfg.Platforms)
	}
}

func TestLoadRequiresCredentialsOnline(t *testing.T) {
	t.Setenv("GAMEDB_CLIENT_ID", "")
	t.Setenv("GAMEDB_CLIENT_SECRET", "")

	path := writeConfig(t, `
[pipeline]
offline = false
`)
	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected credential error for online run")
	}
	if !strings.Contains(err.Error(), "client_id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadOfflineSkipsCredentialCheck(t *testing.T) {
	t.Setenv("GAMEDB_CLIENT_ID", "")
	t.Setenv("GAMEDB_CLIENT_SECRET", "")

	path := writeConfig(t, `
[pipeline]
offline = true
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Pipeline.Offline {
		t.Fatal("offline flag lost")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rps", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{"zero concurrency", func(c *Config) { c.RateLimit.MaxConcurrency = 0 }},
		{"zero batch", func(c *Config) { c.Pipeline.BatchSize = 0 }},
		{"zero checkpoint", func(c *Config) { c.Pipeline.CheckpointThreshold = 0 }},
		{"threshold above one", func(c *Config) { c.Matching.FuzzyThreshold = 1.5 }},
		{"zero cache items", func(c *Config) { c.Cache.LocalMaxItems = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.GameDB.ClientID = "id"
			cfg.GameDB.ClientSecret = "secret"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/roms")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "roms") {
		t.Errorf("ExpandPath = %q", got)
	}
}
