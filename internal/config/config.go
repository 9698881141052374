package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
	TaskDBPath string `toml:"task_db_path"`
}

// Workflow contains admission, eviction, and deadline settings for task runs.
type Workflow struct {
	Concurrency             int `toml:"concurrency"`
	MaxTasks                int `toml:"max_tasks"`
	TaskExpiryHours         int `toml:"task_expiry_hours"`
	EvictionIntervalMinutes int `toml:"eviction_interval_minutes"`
	TaskTimeoutSeconds      int `toml:"task_timeout_seconds"`
	StageTimeoutSeconds     int `toml:"stage_timeout_seconds"`
}

// Provider describes one remote backend tried by the fallback router.
// APIKey is resolved from APIKeyEnv during normalization and never written
// back to disk.
type Provider struct {
	Name           string `toml:"name"`
	BaseURL        string `toml:"base_url"`
	APIKeyEnv      string `toml:"api_key_env"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`

	APIKey string `toml:"-"`
}

// Timeout returns the per-provider request timeout.
func (p Provider) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return time.Duration(defaultProviderTimeoutSeconds) * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// LLM contains synthesis provider settings shared by all synthesis calls.
type LLM struct {
	MaxAttempts        int        `toml:"max_attempts"`
	BackoffBaseSeconds int        `toml:"backoff_base_seconds"`
	Providers          []Provider `toml:"providers"`
}

// Storage contains optional remote document upload settings.
type Storage struct {
	Enabled   bool       `toml:"enabled"`
	Providers []Provider `toml:"providers"`
}

// Tools contains external commands wrapped by extraction and analysis stages.
// Each value is a full command line; the source file path is appended.
type Tools struct {
	TranscriberCommand string `toml:"transcriber_command"`
	OCRCommand         string `toml:"ocr_command"`
	ConverterCommand   string `toml:"converter_command"`
	StyleCommand       string `toml:"style_command"`
	VideoStyleCommand  string `toml:"video_style_command"`
}

// Output contains result rendering settings.
type Output struct {
	Format string `toml:"format"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for distill.
//
// Configuration sections by subsystem:
//   - Paths: data/output/log directories and API bind address
//   - Workflow: concurrency ceiling, eviction policy, task and stage deadlines
//   - LLM: retry policy and the ordered synthesis provider list
//   - Storage: optional remote document upload providers
//   - Tools: external transcriber/OCR/style-analyzer commands
//   - Output: result rendering format
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	LLM           LLM           `toml:"llm"`
	Storage       Storage       `toml:"storage"`
	Tools         Tools         `toml:"tools"`
	Output        Output        `toml:"output"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/distill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and provider API keys resolved from the
// environment (a .env file next to the working directory is honored).
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("distill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the data, output, upload, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputDir, c.UploadDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadDir returns the directory holding files submitted through the API.
func (c *Config) UploadDir() string {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// TaskTimeout returns the whole-task deadline.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Workflow.TaskTimeoutSeconds) * time.Second
}

// StageTimeout returns the per-stage execution limit.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.Workflow.StageTimeoutSeconds) * time.Second
}

// TaskExpiry returns the age after which terminal tasks are evicted.
func (c *Config) TaskExpiry() time.Duration {
	return time.Duration(c.Workflow.TaskExpiryHours) * time.Hour
}

// EvictionInterval returns the period between eviction sweeps.
func (c *Config) EvictionInterval() time.Duration {
	return time.Duration(c.Workflow.EvictionIntervalMinutes) * time.Minute
}

// BackoffBase returns the base delay for call retries.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.LLM.BackoffBaseSeconds) * time.Second
}

// Redacted exports the configuration for the /api/config endpoint with
// secrets removed.
func (c *Config) Redacted() map[string]any {
	providers := make([]map[string]any, 0, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		providers = append(providers, map[string]any{
			"name":            p.Name,
			"base_url":        p.BaseURL,
			"model":           p.Model,
			"timeout_seconds": p.TimeoutSeconds,
			"has_api_key":     p.APIKey != "",
		})
	}
	return map[string]any{
		"workflow": map[string]any{
			"concurrency":          c.Workflow.Concurrency,
			"max_tasks":            c.Workflow.MaxTasks,
			"task_expiry_hours":    c.Workflow.TaskExpiryHours,
			"task_timeout_seconds": c.Workflow.TaskTimeoutSeconds,
		},
		"llm": map[string]any{
			"max_attempts":         c.LLM.MaxAttempts,
			"backoff_base_seconds": c.LLM.BackoffBaseSeconds,
			"providers":            providers,
		},
		"output": map[string]any{"format": c.Output.Format},
		"paths": map[string]any{
			"data":   c.Paths.DataDir,
			"output": c.Paths.OutputDir,
			"logs":   c.Paths.LogDir,
		},
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
