package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"distill/internal/config"
	"distill/internal/logging"
	"distill/internal/services"
)

// StyleReport is the visual style profile produced by the analyzer tool.
// Fields mirror the analyzer's JSON output; unknown keys land in Extra.
type StyleReport struct {
	ColorPalette map[string]any `json:"color_palette,omitempty"`
	Lighting     map[string]any `json:"lighting,omitempty"`
	Composition  map[string]any `json:"composition,omitempty"`
	Complexity   map[string]any `json:"complexity,omitempty"`
	Dimensions   map[string]any `json:"dimensions,omitempty"`
	Summary      string         `json:"summary"`
}

// CommandRunner executes the analyzer tool and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Analyzer wraps an external visual style analyzer that emits a JSON report
// on stdout.
type Analyzer struct {
	tools  config.Tools
	runner CommandRunner
	logger *slog.Logger
}

// NewAnalyzer constructs an analyzer over the configured style command.
func NewAnalyzer(tools config.Tools, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		tools:  tools,
		runner: runCommand,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (a *Analyzer) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		a.runner = runner
	}
}

// Configured reports whether a style analyzer command is set.
func (a *Analyzer) Configured() bool {
	return strings.TrimSpace(a.tools.StyleCommand) != ""
}

// AnalyzeStyle runs the configured analyzer against the source image and
// decodes its JSON report.
func (a *Analyzer) AnalyzeStyle(ctx context.Context, path string) (StyleReport, error) {
	var report StyleReport
	if !a.Configured() {
		return report, services.Wrap(services.ErrConfiguration, "style", "",
			"no style analyzer configured", nil)
	}
	parts := strings.Fields(a.tools.StyleCommand)
	args := append(parts[1:], path)

	a.logger.Info("running style analyzer",
		logging.String("tool", parts[0]),
		logging.String("source", filepath.Base(path)),
	)
	output, err := a.runner(ctx, parts[0], args...)
	if err != nil {
		return report, services.Wrap(nil, "style", "analyze", parts[0], err)
	}
	if err := json.Unmarshal(output, &report); err != nil {
		return report, services.Wrap(nil, "style", "analyze",
			fmt.Sprintf("parse %s output", parts[0]), err)
	}
	return report, nil
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
