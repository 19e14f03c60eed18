package config

const (
	defaultRomDir              = "~/roms"
	defaultOutputDir           = "~/.local/share/romdex/catalog"
	defaultLogDir              = "~/.local/share/romdex/logs"
	defaultImageDir            = "~/.local/share/romdex/images"
	defaultGameDBBaseURL       = "https://api.igdb.com/v4"
	defaultGameDBAuthURL       = "https://id.twitch.tv/oauth2/token"
	defaultGameDBTimeoutSecs   = 15
	defaultRequestsPerSecond   = 4
	defaultRefillIntervalMS    = 1000
	defaultMaxConcurrency      = 4
	defaultCacheTTLHours       = 24
	defaultCacheLocalMaxItems  = 4096
	defaultCacheLocalMaxMiB    = 64
	defaultFuzzyThreshold      = 0.4
	defaultBatchSize           = 50
	defaultCheckpointThreshold = 100
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RomDir:    defaultRomDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			ImageDir:  defaultImageDir,
		},
		GameDB: GameDB{
			BaseURL:     defaultGameDBBaseURL,
			AuthURL:     defaultGameDBAuthURL,
			TimeoutSecs: defaultGameDBTimeoutSecs,
		},
		RateLimit: RateLimit{
			RequestsPerSecond: defaultRequestsPerSecond,
			RefillIntervalMS:  defaultRefillIntervalMS,
			MaxConcurrency:    defaultMaxConcurrency,
			Adaptive:          true,
		},
		Cache: Cache{
			TTLHours:      defaultCacheTTLHours,
			LocalMaxItems: defaultCacheLocalMaxItems,
			LocalMaxMiB:   defaultCacheLocalMaxMiB,
		},
		Matching: Matching{
			FuzzyThreshold: defaultFuzzyThreshold,
		},
		Pipeline: Pipeline{
			BatchSize:           defaultBatchSize,
			CheckpointThreshold: defaultCheckpointThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
