package workflow

import (
	"log/slog"

	"distill/internal/analysis"
	"distill/internal/config"
	"distill/internal/extract"
	"distill/internal/pipeline"
	"distill/internal/services/llm"
	"distill/internal/services/providers"
	"distill/internal/services/retry"
	"distill/internal/services/storage"
	"distill/internal/synth"
)

// NewSequencer wires the default stage pipeline from configuration. The
// synthesis and storage routers share one retry policy; the uploader is only
// built when a storage backend is configured.
func NewSequencer(cfg *config.Config, logger *slog.Logger) *pipeline.Sequencer {
	exec := retry.New(logger,
		retry.WithMaxAttempts(cfg.LLM.MaxAttempts),
		retry.WithBaseDelay(cfg.BackoffBase()),
	)
	client := llm.NewClient()
	synthRouter := providers.NewRouter(providers.FromConfig(cfg.LLM.Providers), exec, logger)

	var uploader *storage.Uploader
	if cfg.Storage.Enabled && len(cfg.Storage.Providers) > 0 {
		storageRouter := providers.NewRouter(providers.FromConfig(cfg.Storage.Providers), exec, logger)
		uploader = storage.NewUploader(storageRouter, logger)
	}

	stages := pipeline.DefaultStages(pipeline.Deps{
		Extractor:    extract.NewExtractor(cfg.Tools, logger),
		Analyzer:     analysis.NewAnalyzer(cfg.Tools, logger),
		Synthesizer:  synth.NewSynthesizer(synthRouter, client, logger),
		Uploader:     uploader,
		OutputDir:    cfg.Paths.OutputDir,
		OutputFormat: cfg.Output.Format,
	})
	return pipeline.NewSequencer(stages, cfg.StageTimeout(), logger)
}
