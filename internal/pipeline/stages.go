package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"distill/internal/analysis"
	"distill/internal/extract"
	"distill/internal/fusion"
	"distill/internal/ingest"
	"distill/internal/services"
	"distill/internal/services/storage"
	"distill/internal/synth"
)

// Deps carries the collaborators the default stage list drives.
type Deps struct {
	Extractor   *extract.Extractor
	Analyzer    *analysis.Analyzer
	Synthesizer *synth.Synthesizer
	// Uploader is nil when no storage backend is configured.
	Uploader *storage.Uploader

	OutputDir    string
	OutputFormat string
}

// DefaultStages builds the standard processing pipeline. Identification and
// extraction are fatal; everything downstream degrades to a recorded warning.
func DefaultStages(deps Deps) []Stage {
	return []Stage{
		{
			Name:  "identify",
			Label: "Identifying input",
			Start: 5,
			End:   10,
			Fatal: true,
			Execute: func(_ context.Context, exec *Execution, _ SubReport) error {
				kind, err := ingest.Identify(exec.SourcePath)
				if err != nil {
					return err
				}
				exec.Kind = kind
				return nil
			},
		},
		{
			Name:  "extract",
			Label: "Extracting content",
			Start: 10,
			End:   35,
			Fatal: true,
			Execute: func(ctx context.Context, exec *Execution, _ SubReport) error {
				text, err := deps.Extractor.Extract(ctx, exec.SourcePath, exec.Kind)
				if err != nil {
					return err
				}
				exec.ExtractedText = text
				return nil
			},
		},
		{
			Name:  "style",
			Label: "Analyzing style",
			Start: 35,
			End:   55,
			Applies: func(exec *Execution) bool {
				return exec.Options.Intent == synth.IntentStyle
			},
			Execute: func(ctx context.Context, exec *Execution, _ SubReport) error {
				switch exec.Kind {
				case ingest.KindImage:
					report, err := deps.Analyzer.AnalyzeStyle(ctx, exec.SourcePath)
					if err != nil {
						return err
					}
					styleContext, err := styleContextOf(report)
					if err != nil {
						return err
					}
					exec.StyleContext = styleContext
				case ingest.KindVideo:
					if !deps.Analyzer.VideoConfigured() {
						return nil
					}
					report, err := deps.Analyzer.AnalyzeVideo(ctx, exec.SourcePath)
					if err != nil {
						return err
					}
					styleContext, err := styleContextOf(report)
					if err != nil {
						return err
					}
					exec.StyleContext = styleContext
				}
				// Other kinds carry no visual style to profile.
				return nil
			},
		},
		{
			Name:  "synthesize",
			Label: "Synthesizing knowledge",
			Start: 55,
			End:   80,
			Applies: func(exec *Execution) bool {
				return exec.ExtractedText != "" || len(exec.StyleContext) > 0
			},
			Execute: func(ctx context.Context, exec *Execution, _ SubReport) error {
				knowledge, err := deps.Synthesizer.ExtractKnowledge(ctx, synth.Request{
					Text:         exec.ExtractedText,
					Intent:       exec.Options.Intent,
					DocType:      exec.Options.DocType,
					StyleContext: exec.StyleContext,
					Provider:     exec.Options.Provider,
				})
				if err != nil {
					return err
				}
				fusion.Normalize(&knowledge, exec.ExtractedText)
				exec.Knowledge = &knowledge
				return nil
			},
		},
		{
			Name:  "render",
			Label: "Rendering output",
			Start: 80,
			End:   90,
			Execute: func(_ context.Context, exec *Execution, _ SubReport) error {
				format := exec.Options.OutputFormat
				if format == "" {
					format = deps.OutputFormat
				}
				path, err := fusion.Emit(documentOf(exec), deps.OutputDir, format)
				if err != nil {
					return err
				}
				exec.OutputPath = path
				return nil
			},
		},
		{
			Name:  "publish",
			Label: "Publishing document",
			Start: 90,
			End:   95,
			Applies: func(*Execution) bool {
				return deps.Uploader != nil
			},
			Execute: func(ctx context.Context, exec *Execution, _ SubReport) error {
				if exec.OutputPath == "" {
					return services.Wrap(nil, "publish", "", "no rendered output to publish", nil)
				}
				body, err := os.ReadFile(exec.OutputPath)
				if err != nil {
					return fmt.Errorf("publish: read output: %w", err)
				}
				location, err := deps.Uploader.Upload(ctx, exec.OutputPath, body)
				if err != nil {
					return err
				}
				exec.StorageLocation = location
				return nil
			},
		},
	}
}

func documentOf(exec *Execution) fusion.Document {
	return fusion.Document{
		Filename:       exec.Filename,
		SourceType:     string(exec.Kind),
		SourcePath:     exec.SourcePath,
		ExtractedText:  exec.ExtractedText,
		Knowledge:      exec.Knowledge,
		StyleContext:   exec.StyleContext,
		CreatedAt:      time.Now().UTC(),
		ProcessingTime: time.Since(exec.StartedAt),
		Errors:         exec.Errors,
	}
}

func styleContextOf(report any) (map[string]any, error) {
	encoded, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("style: encode report: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, fmt.Errorf("style: decode report: %w", err)
	}
	return out, nil
}
