package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultNormalizesAndValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Paths.LibraryDB == "" || cfg.Paths.LibraryDB[0] != '/' {
		t.Fatalf("expected absolute library_db path, got %q", cfg.Paths.LibraryDB)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Reconcile.CacheTTLDays != defaultCacheTTLDays {
		t.Fatalf("expected default TTL, got %d", cfg.Reconcile.CacheTTLDays)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[sources]
enabled = ["spotify", "deezer"]
primary = "spotify"

[reconcile]
max_distance = 0.2
cache_ttl_days = 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if len(cfg.Sources.Enabled) != 2 || cfg.Sources.Enabled[0] != "spotify" {
		t.Fatalf("unexpected sources: %#v", cfg.Sources.Enabled)
	}
	if cfg.Sources.Primary != "spotify" {
		t.Fatalf("unexpected primary: %q", cfg.Sources.Primary)
	}
	if cfg.Reconcile.MaxDistance != 0.2 {
		t.Fatalf("unexpected max_distance: %v", cfg.Reconcile.MaxDistance)
	}
	if cfg.Reconcile.CacheTTLDays != 7 {
		t.Fatalf("unexpected cache_ttl_days: %d", cfg.Reconcile.CacheTTLDays)
	}
	// Unset fields keep their defaults.
	if cfg.Deezer.BaseURL != defaultDeezerBaseURL {
		t.Fatalf("unexpected deezer base url: %q", cfg.Deezer.BaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[reconcile]
max_distance = 3.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for max_distance > 1")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error overwriting existing config")
	}
}

func TestSpotifyCredentialsFromEnv(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Spotify.ClientID != "env-id" || cfg.Spotify.ClientSecret != "env-secret" {
		t.Fatalf("expected env credentials, got %q/%q", cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	}
}
