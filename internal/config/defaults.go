package config

const (
	defaultLibraryDB        = "~/.local/share/tonearm/library.db"
	defaultCacheDB          = "~/.local/share/tonearm/matches.db"
	defaultLogDir           = "~/.local/share/tonearm/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultMaxDistance      = 0.4
	defaultCacheTTLDays     = 30
	defaultFetchTimeout     = 10
	defaultSearchLimit      = 5
	defaultDeezerBaseURL    = "https://api.deezer.com"
	defaultSpotifyBaseURL   = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL  = "https://accounts.spotify.com/api/token"
	defaultRatePerSecond    = 5.0
	defaultBurst            = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDB: defaultLibraryDB,
			CacheDB:   defaultCacheDB,
			LogDir:    defaultLogDir,
		},
		Sources: Sources{
			Enabled: nil, // auto: all available providers
		},
		Reconcile: Reconcile{
			MaxDistance:  defaultMaxDistance,
			CacheTTLDays: defaultCacheTTLDays,
			FetchTimeout: defaultFetchTimeout,
			SearchLimit:  defaultSearchLimit,
			Write:        true,
		},
		Deezer: Deezer{
			BaseURL:       defaultDeezerBaseURL,
			RatePerSecond: defaultRatePerSecond,
			Burst:         defaultBurst,
		},
		Spotify: Spotify{
			BaseURL:       defaultSpotifyBaseURL,
			TokenURL:      defaultSpotifyTokenURL,
			RatePerSecond: defaultRatePerSecond,
			Burst:         defaultBurst,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
