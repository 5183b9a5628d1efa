package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeReconcile()
	c.normalizeProviders()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LibraryDB) == "" {
		c.Paths.LibraryDB = defaultLibraryDB
	}
	if c.Paths.LibraryDB, err = expandPath(c.Paths.LibraryDB); err != nil {
		return fmt.Errorf("paths.library_db: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDB) == "" {
		c.Paths.CacheDB = defaultCacheDB
	}
	if c.Paths.CacheDB, err = expandPath(c.Paths.CacheDB); err != nil {
		return fmt.Errorf("paths.cache_db: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	cleaned := make([]string, 0, len(c.Sources.Enabled))
	for _, source := range c.Sources.Enabled {
		if trimmed := strings.TrimSpace(source); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	c.Sources.Enabled = cleaned
	c.Sources.Primary = strings.TrimSpace(c.Sources.Primary)
}

func (c *Config) normalizeReconcile() {
	if c.Reconcile.CacheTTLDays <= 0 {
		c.Reconcile.CacheTTLDays = defaultCacheTTLDays
	}
	if c.Reconcile.FetchTimeout <= 0 {
		c.Reconcile.FetchTimeout = defaultFetchTimeout
	}
	if c.Reconcile.SearchLimit <= 0 {
		c.Reconcile.SearchLimit = defaultSearchLimit
	}
}

func (c *Config) normalizeProviders() {
	c.Deezer.BaseURL = strings.TrimSpace(c.Deezer.BaseURL)
	if c.Deezer.BaseURL == "" {
		c.Deezer.BaseURL = defaultDeezerBaseURL
	}
	if c.Deezer.RatePerSecond <= 0 {
		c.Deezer.RatePerSecond = defaultRatePerSecond
	}
	if c.Deezer.Burst <= 0 {
		c.Deezer.Burst = defaultBurst
	}

	c.Spotify.ClientID = strings.TrimSpace(c.Spotify.ClientID)
	if c.Spotify.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Spotify.ClientID = strings.TrimSpace(value)
		}
	}
	c.Spotify.ClientSecret = strings.TrimSpace(c.Spotify.ClientSecret)
	if c.Spotify.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Spotify.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Spotify.BaseURL = strings.TrimSpace(c.Spotify.BaseURL)
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = defaultSpotifyBaseURL
	}
	c.Spotify.TokenURL = strings.TrimSpace(c.Spotify.TokenURL)
	if c.Spotify.TokenURL == "" {
		c.Spotify.TokenURL = defaultSpotifyTokenURL
	}
	if c.Spotify.RatePerSecond <= 0 {
		c.Spotify.RatePerSecond = defaultRatePerSecond
	}
	if c.Spotify.Burst <= 0 {
		c.Spotify.Burst = defaultBurst
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
