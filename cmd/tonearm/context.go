package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/library"
	"tonearm/internal/logging"
	"tonearm/internal/matchcache"
	"tonearm/internal/providers"
	"tonearm/internal/providers/deezer"
	"tonearm/internal/providers/spotify"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openLibrary() (*library.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return library.Open(cfg.Paths.LibraryDB)
}

func (c *commandContext) openCache() (*matchcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return matchcache.Open(cfg.Paths.CacheDB, cfg.Reconcile.CacheTTLDays, logger)
}

// buildRegistry registers every provider whose configuration is complete.
// Sources missing credentials are logged and left out rather than failing
// the command.
func (c *commandContext) buildRegistry() (*providers.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry(logger)
	fetchTimeout := time.Duration(cfg.Reconcile.FetchTimeout) * time.Second

	deezerClient, err := deezer.New(cfg.Deezer.BaseURL, fetchTimeout,
		cfg.Deezer.RatePerSecond, cfg.Deezer.Burst)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(deezerClient); err != nil {
		return nil, err
	}

	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		spotifyClient, err := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
			cfg.Spotify.BaseURL, cfg.Spotify.TokenURL, fetchTimeout,
			cfg.Spotify.RatePerSecond, cfg.Spotify.Burst)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(spotifyClient); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("spotify credentials not configured, source unavailable",
			logging.String(logging.FieldSource, spotify.SourceName))
	}

	return registry, nil
}

func (c *commandContext) lockPath() string {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.Paths.LibraryDB), "tonearm.lock")
}
