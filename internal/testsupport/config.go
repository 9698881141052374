package testsupport

import (
	"path/filepath"
	"testing"

	"distill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The task store stays in memory and timing knobs are kept small.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithConcurrency overrides the workflow concurrency ceiling.
func WithConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Concurrency = n
	}
}

// WithProviders replaces the configured synthesis providers.
func WithProviders(providers ...config.Provider) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.Providers = providers
	}
}

// WithTaskDBPath points the task store at a file instead of memory.
func WithTaskDBPath(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.TaskDBPath = path
	}
}
