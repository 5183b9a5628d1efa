// Package testsupport provides shared helpers for package tests: temp-dir
// configs and must-open stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/library"
	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp paths per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDB = filepath.Join(base, "library.db")
	cfg.Paths.CacheDB = filepath.Join(base, "matches.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Spotify.ClientID = "test"
	cfg.Spotify.ClientSecret = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure config directories: %v", err)
	}
	return &cfg
}

// MustOpenLibrary opens a library store for the config, failing the test on
// error and closing it on cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()
	store, err := library.Open(cfg.Paths.LibraryDB)
	if err != nil {
		t.Fatalf("open library store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// MustOpenCache opens a match cache for the config with the supplied clock,
// failing the test on error and closing it on cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config, opts ...matchcache.Option) *matchcache.Cache {
	t.Helper()
	cache, err := matchcache.Open(cfg.Paths.CacheDB, cfg.Reconcile.CacheTTLDays, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("open match cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}
