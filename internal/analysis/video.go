package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"distill/internal/logging"
	"distill/internal/services"
)

// VideoReport is the style profile produced by the video analyzer tool. The
// tool decides analysis depth; absent sections stay empty.
type VideoReport struct {
	Scenes         []map[string]any `json:"scenes,omitempty"`
	Objects        []map[string]any `json:"objects,omitempty"`
	Actions        []map[string]any `json:"actions,omitempty"`
	Cinematography map[string]any   `json:"cinematography,omitempty"`
	Style          map[string]any   `json:"style,omitempty"`
	Transitions    []map[string]any `json:"transitions,omitempty"`
	AnalysisLevel  string           `json:"analysis_level,omitempty"`
}

// VideoConfigured reports whether a video style analyzer command is set.
func (a *Analyzer) VideoConfigured() bool {
	return strings.TrimSpace(a.tools.VideoStyleCommand) != ""
}

// AnalyzeVideo runs the configured video analyzer against the source and
// decodes its JSON report.
func (a *Analyzer) AnalyzeVideo(ctx context.Context, path string) (VideoReport, error) {
	var report VideoReport
	if !a.VideoConfigured() {
		return report, services.Wrap(services.ErrConfiguration, "style", "",
			"no video style analyzer configured", nil)
	}
	parts := strings.Fields(a.tools.VideoStyleCommand)
	args := append(parts[1:], path)

	a.logger.Info("running video style analyzer",
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
