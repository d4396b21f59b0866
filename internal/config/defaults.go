package config

const (
	defaultDataDir            = "~/.local/share/airdate"
	defaultLibraryDir         = "~/videos"
	defaultLogDir             = "~/.local/share/airdate/logs"
	defaultAPIBind            = "127.0.0.1:7631"
	defaultTokenPath          = "~/.config/airdate/youtube_token.json"
	defaultUploadURL          = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultCategoryID         = "22"
	defaultChunkSizeMiB       = 1
	defaultRequestTimeout     = 60
	defaultChunkRetries       = 5
	defaultRetryBaseDelayMS   = 2000
	defaultPollInterval       = 15
	defaultErrorRetryInterval = 10
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		YouTube: YouTube{
			TokenPath:      defaultTokenPath,
			UploadURL:      defaultUploadURL,
			CategoryID:     defaultCategoryID,
			ChunkSizeMiB:   defaultChunkSizeMiB,
			RequestTimeout: defaultRequestTimeout,
			ChunkRetries:   defaultChunkRetries,
			RetryBaseDelay: defaultRetryBaseDelayMS,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Uploads:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
