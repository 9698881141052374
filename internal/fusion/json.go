package fusion

import (
	"encoding/json"
	"time"

	"distill/internal/synth"
)

type jsonSource struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Path     string `json:"path"`
}

type jsonMetadata struct {
	ProcessingTimeSec float64  `json:"processing_time_sec"`
	CreatedAt         string   `json:"created_at"`
	Errors            []string `json:"errors"`
}

type jsonDocument struct {
	Source        jsonSource       `json:"source"`
	ExtractedText string           `json:"extracted_text"`
	AIAnalysis    *synth.Knowledge `json:"ai_analysis"`
	StyleAnalysis map[string]any   `json:"style_analysis,omitempty"`
	Metadata      jsonMetadata     `json:"metadata"`
}

// FormatJSON renders a document as an indented JSON payload.
func FormatJSON(doc Document) ([]byte, error) {
	errs := doc.Errors
	if errs == nil {
		errs = []string{}
	}
	payload := jsonDocument{
		Source: jsonSource{
			Filename: doc.Filename,
			Type:     doc.SourceType,
			Path:     doc.SourcePath,
		},
		ExtractedText: doc.ExtractedText,
		AIAnalysis:    doc.Knowledge,
		StyleAnalysis: doc.StyleContext,
		Metadata: jsonMetadata{
			ProcessingTimeSec: doc.ProcessingTime.Seconds(),
			CreatedAt:         doc.CreatedAt.UTC().Format(time.RFC3339),
			Errors:            errs,
		},
	}
	return json.MarshalIndent(payload, "", "  ")
}
