package config

const (
	defaultDataDir          = "~/.local/share/filebutler"
	defaultLogDir           = "~/.local/share/filebutler/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultPollInterval     = 3
	defaultDebounceSeconds  = 2
	defaultCleanupEveryTick = 10
	defaultStopGraceSeconds = 3
	defaultIndexPauseMillis = 300
	defaultPlannerBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultPlannerModel     = "google/gemini-3-flash-preview"
	defaultPlannerTitle     = "Filebutler Organizer"
	defaultPlannerTimeout   = 60
	defaultNtfyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Watcher: Watcher{
			PollInterval:     defaultPollInterval,
			DebounceSeconds:  defaultDebounceSeconds,
			CleanupEveryTick: defaultCleanupEveryTick,
			StopGraceSeconds: defaultStopGraceSeconds,
			IndexPauseMillis: defaultIndexPauseMillis,
		},
		Planner: Planner{
			BaseURL:        defaultPlannerBaseURL,
			Model:          defaultPlannerModel,
			Title:          defaultPlannerTitle,
			TimeoutSeconds: defaultPlannerTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
