package config

const (
	defaultLogDir             = "~/.local/share/trawler/logs"
	defaultAPIBind            = "127.0.0.1:7591"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultIMDBBaseURL        = "https://www.imdb.com"
	defaultIMDBUserAgent      = "Mozilla/5.0 (compatible; trawler)"
	defaultIMDBAcceptLanguage = "en-US,en;q=0.8"
	defaultIMDBMinIntervalSec = 3
	defaultIMDBMaxResults     = 50
	defaultIMDBTimeoutSec     = 30
	defaultCachePath          = "~/.local/share/trawler/search_cache.db"
	defaultCacheTTLHours      = 24
	defaultAkaWeight          = 0.95
	defaultFirstWeight        = 1.1
	defaultMinMatch           = 0.7
	defaultMinDiff            = 0.01
	defaultWorkers            = 1
	defaultQueueCapacity      = 64
	defaultLogBufferSize      = 2048
	defaultFetchTimeoutSec    = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		IMDB: IMDB{
			BaseURL:            defaultIMDBBaseURL,
			UserAgent:          defaultIMDBUserAgent,
			AcceptLanguage:     defaultIMDBAcceptLanguage,
			MinIntervalSeconds: defaultIMDBMinIntervalSec,
			MaxResults:         defaultIMDBMaxResults,
			TimeoutSeconds:     defaultIMDBTimeoutSec,
		},
		Matching: Matching{
			AkaWeight:   defaultAkaWeight,
			FirstWeight: defaultFirstWeight,
			MinMatch:    defaultMinMatch,
			MinDiff:     defaultMinDiff,
			SingleMatch: true,
		},
		Cache: Cache{
			Enabled:  true,
			Path:     defaultCachePath,
			TTLHours: defaultCacheTTLHours,
		},
		Workflow: Workflow{
			Workers:             defaultWorkers,
			QueueCapacity:       defaultQueueCapacity,
			LogBufferSize:       defaultLogBufferSize,
			FetchTimeoutSeconds: defaultFetchTimeoutSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
