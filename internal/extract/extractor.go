package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"log/slog"

	"distill/internal/config"
	"distill/internal/ingest"
	"distill/internal/logging"
	"distill/internal/services"
)

// CommandRunner executes an external tool and returns its stdout. Overridable
// for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor turns source files into plain text. Plain documents and web pages
// are handled natively; audio, video, images, and binary document formats go
// through configured external commands.
type Extractor struct {
	tools  config.Tools
	runner CommandRunner
	logger *slog.Logger
}

// NewExtractor constructs an extractor over the configured tool commands.
func NewExtractor(tools config.Tools, logger *slog.Logger) *Extractor {
	return &Extractor{
		tools:  tools,
		runner: runCommand,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		e.runner = runner
	}
}

// Extract produces the text content of path according to its kind.
func (e *Extractor) Extract(ctx context.Context, path string, kind ingest.Kind) (string, error) {
	switch kind {
	case ingest.KindVideo, ingest.KindAudio:
		return e.runTool(ctx, "transcribe", e.tools.TranscriberCommand, path)
	case ingest.KindImage:
		return e.runTool(ctx, "ocr", e.tools.OCRCommand, path)
	case ingest.KindWebpage:
		return e.extractWebpage(path)
	case ingest.KindDocument:
		return e.extractDocument(ctx, path)
	default:
		return "", services.Wrap(services.ErrUnsupportedInput, "extract", "",
			fmt.Sprintf("no extraction path for kind %q", kind), nil)
	}
}

func (e *Extractor) extractDocument(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("extract: read %s: %w", filepath.Base(path), err)
		}
		return string(data), nil
	default:
		return e.runTool(ctx, "convert", e.tools.ConverterCommand, path)
	}
}

func (e *Extractor) extractWebpage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", filepath.Base(path), err)
	}
	text, err := HTMLText(string(data))
	if err != nil {
		return "", fmt.Errorf("extract: parse html %s: %w", filepath.Base(path), err)
	}
	return text, nil
}

// runTool runs a configured command line with the source path appended and
// returns its stdout as the extracted text.
func (e *Extractor) runTool(ctx context.Context, operation, command, path string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", services.Wrap(services.ErrConfiguration, "extract", operation,
			fmt.Sprintf("no tool configured for %s", filepath.Ext(path)), nil)
	}
	parts := strings.Fields(command)
	args := append(parts[1:], path)

	e.logger.Info("running extraction tool",
		logging.String("operation", operation),
		logging.String("tool", parts[0]),
		logging.String("source", filepath.Base(path)),
	)
	output, err := e.runner(ctx, parts[0], args...)
	if err != nil {
		return "", services.Wrap(nil, "extract", operation, parts[0], err)
	}
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "", services.Wrap(nil, "extract", operation,
			fmt.Sprintf("%s produced no text", parts[0]), nil)
	}
	return text, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
