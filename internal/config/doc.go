// Package config loads, normalizes, and validates tonearm configuration.
//
// Configuration is a single TOML file (default ~/.config/tonearm/config.toml,
// or tonearm.toml in the working directory). Secrets such as the Spotify
// client credentials may come from the environment or a .env file instead of
// the config file. Loaded configs always have paths expanded and defaults
// applied; callers never see a partially-populated Config.
package config
