package config

const (
	defaultDataDir                 = "~/.local/share/distill"
	defaultOutputDir               = "~/.local/share/distill/output"
	defaultLogDir                  = "~/.local/share/distill/logs"
	defaultAPIBind                 = "127.0.0.1:8006"
	defaultConcurrency             = 3
	defaultMaxTasks                = 1000
	defaultTaskExpiryHours         = 24
	defaultEvictionIntervalMinutes = 10
	defaultTaskTimeoutSeconds      = 3600
	defaultStageTimeoutSeconds     = 900
	defaultMaxAttempts             = 3
	defaultBackoffBaseSeconds      = 1
	defaultProviderTimeoutSeconds  = 60
	defaultOutputFormat            = "markdown"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultNotifyRequestTimeout    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Workflow: Workflow{
			Concurrency:             defaultConcurrency,
			MaxTasks:                defaultMaxTasks,
			TaskExpiryHours:         defaultTaskExpiryHours,
			EvictionIntervalMinutes: defaultEvictionIntervalMinutes,
			TaskTimeoutSeconds:      defaultTaskTimeoutSeconds,
			StageTimeoutSeconds:     defaultStageTimeoutSeconds,
		},
		LLM: LLM{
			MaxAttempts:        defaultMaxAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
			Providers: []Provider{
				{
					Name:           "deepseek",
					BaseURL:        "https://api.deepseek.com",
					APIKeyEnv:      "DEEPSEEK_API_KEY",
					Model:          "deepseek-chat",
					TimeoutSeconds: defaultProviderTimeoutSeconds,
				},
				{
					Name:           "qwen",
					BaseURL:        "https://dashscope.aliyuncs.com/compatible-mode/v1",
					APIKeyEnv:      "QWEN_API_KEY",
					Model:          "qwen-max",
					TimeoutSeconds: defaultProviderTimeoutSeconds,
				},
			},
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completion:     true,
			Errors:         true,
		},
	}
}
