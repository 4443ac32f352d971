package config

const (
	defaultBaseURL             = "https://esesja.tv"
	defaultPages               = 1
	defaultRequestTimeout      = 30
	defaultRequestDelayMS      = 2000
	defaultUserAgent           = "Mozilla/5.0 (compatible; plenum/0.1; +https://github.com/mwidera/plenum)"
	defaultMediaDir            = "~/.local/share/plenum/media"
	defaultAudioDir            = "~/.local/share/plenum/audio"
	defaultTranscriptDir       = "~/transcripts"
	defaultProgressFile        = "~/.local/share/plenum/progress.json"
	defaultCatalogCache        = "~/.local/share/plenum/catalog.db"
	defaultLogDir              = "~/.local/share/plenum/logs"
	defaultMaxConcurrent       = 2
	maxConcurrentLimit         = 8
	defaultMaxAttempts         = 3
	defaultFetchTimeoutMinutes = 60
	defaultWhisperModel        = "base"
	defaultLanguage            = "pl"
	defaultNtfyRequestTimeout  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Source: Source{
			BaseURL:        defaultBaseURL,
			Pages:          defaultPages,
			RequestTimeout: defaultRequestTimeout,
			RequestDelayMS: defaultRequestDelayMS,
			UserAgent:      defaultUserAgent,
		},
		Paths: Paths{
			MediaDir:      defaultMediaDir,
			AudioDir:      defaultAudioDir,
			TranscriptDir: defaultTranscriptDir,
			ProgressFile:  defaultProgressFile,
			CatalogCache:  defaultCatalogCache,
			LogDir:        defaultLogDir,
		},
		Processing: Processing{
			MaxConcurrent:       defaultMaxConcurrent,
			MaxAttempts:         defaultMaxAttempts,
			FetchTimeoutMinutes: defaultFetchTimeoutMinutes,
		},
		Transcription: Transcription{
			WhisperModel: defaultWhisperModel,
			Language:     defaultLanguage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
