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
	c.normalizeWorkflow()
	c.normalizeLLM()
	c.normalizeStorage()
	c.normalizeTools()
	c.normalizeOutput()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.TaskDBPath, err = expandPath(c.Paths.TaskDBPath); err != nil {
		return fmt.Errorf("paths.task_db_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("DISTILL_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Concurrency <= 0 {
		c.Workflow.Concurrency = defaultConcurrency
	}
	if c.Workflow.MaxTasks <= 0 {
		c.Workflow.MaxTasks = defaultMaxTasks
	}
	if c.Workflow.TaskExpiryHours <= 0 {
		c.Workflow.TaskExpiryHours = defaultTaskExpiryHours
	}
	if c.Workflow.EvictionIntervalMinutes <= 0 {
		c.Workflow.EvictionIntervalMinutes = defaultEvictionIntervalMinutes
	}
	if c.Workflow.TaskTimeoutSeconds <= 0 {
		c.Workflow.TaskTimeoutSeconds = defaultTaskTimeoutSeconds
	}
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultMaxAttempts
	}
	if c.LLM.BackoffBaseSeconds <= 0 {
		c.LLM.BackoffBaseSeconds = defaultBackoffBaseSeconds
	}
	c.LLM.Providers = normalizeProviders(c.LLM.Providers)
}

func (c *Config) normalizeStorage() {
	c.Storage.Providers = normalizeProviders(c.Storage.Providers)
	if len(c.Storage.Providers) == 0 {
		c.Storage.Enabled = false
	}
}

func normalizeProviders(providers []Provider) []Provider {
	normalized := make([]Provider, 0, len(providers))
	for _, p := range providers {
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		p.BaseURL = strings.TrimSpace(p.BaseURL)
		p.Model = strings.TrimSpace(p.Model)
		p.APIKeyEnv = strings.TrimSpace(p.APIKeyEnv)
		if p.Name == "" && p.BaseURL == "" {
			continue
		}
		if p.TimeoutSeconds <= 0 {
			p.TimeoutSeconds = defaultProviderTimeoutSeconds
		}
		if p.APIKeyEnv != "" {
			if value, ok := os.LookupEnv(p.APIKeyEnv); ok {
				p.APIKey = strings.TrimSpace(value)
			}
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func (c *Config) normalizeTools() {
	c.Tools.TranscriberCommand = strings.TrimSpace(c.Tools.TranscriberCommand)
	c.Tools.OCRCommand = strings.TrimSpace(c.Tools.OCRCommand)
	c.Tools.ConverterCommand = strings.TrimSpace(c.Tools.ConverterCommand)
	c.Tools.StyleCommand = strings.TrimSpace(c.Tools.StyleCommand)
	c.Tools.VideoStyleCommand = strings.TrimSpace(c.Tools.VideoStyleCommand)
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}
