package synth

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	"distill/internal/logging"
	"distill/internal/services/llm"
	"distill/internal/services/providers"
)

//go:embed templates/*.txt
var templates embed.FS

const (
	// maxContentRunes bounds the text sent to a provider in one request.
	maxContentRunes = 8000

	systemPrompt = "You are a professional content analysis assistant. " +
		"Output the analysis strictly as JSON with no surrounding text, and make sure the JSON is well formed."

	skillHint = "This output feeds a skill document. Where possible include rules " +
		"(constraints and guidelines), steps (practical steps, each with step_number, " +
		"title, summary), and related (adjacent knowledge)."
)

// Intent selects the analysis path for a task.
const (
	IntentContent = "content"
	IntentStyle   = "style"
)

// Document type values refine the summarize template.
const (
	DocTypeDoc   = "doc"
	DocTypeSkill = "skill"
	DocTypeBoth  = "both"
)

// Section is one structural unit of the analyzed content.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// Step is one practical step in a skill document.
type Step struct {
	StepNumber int    `json:"step_number"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
}

// Structure describes the shape of the analyzed content.
type Structure struct {
	Type     string    `json:"type"`
	Sections []Section `json:"sections"`
}

// Knowledge is the structured distillation produced by a provider.
type Knowledge struct {
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points"`
	Keywords  []string  `json:"keywords"`
	Structure Structure `json:"structure"`

	// Skill-document fields, populated when the skill hint is in effect.
	Rules   []string `json:"rules,omitempty"`
	Steps   []Step   `json:"steps,omitempty"`
	Related []string `json:"related,omitempty"`

	// ParseError marks a response that could not be decoded as JSON; Summary
	// then holds a bounded slice of the raw response.
	ParseError bool `json:"parse_error,omitempty"`

	Raw string `json:"-"`
}

// Request carries the inputs for one knowledge extraction.
type Request struct {
	Text         string
	Intent       string
	DocType      string
	StyleContext map[string]any
	// Provider pins extraction to one configured backend, bypassing fallback.
	Provider string
}

// Synthesizer drives structured knowledge extraction through the provider
// fallback router.
type Synthesizer struct {
	router *providers.Router
	client *llm.Client
	logger *slog.Logger
}

// NewSynthesizer constructs a synthesizer over the configured providers.
func NewSynthesizer(router *providers.Router, client *llm.Client, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		router: router,
		client: client,
		logger: logging.NewComponentLogger(logger, "synth"),
	}
}

// ExtractKnowledge runs one structured extraction. Malformed provider JSON is
// not an error; the raw response is preserved with ParseError set so the
// pipeline can still render a result.
func (s *Synthesizer) ExtractKnowledge(ctx context.Context, req Request) (Knowledge, error) {
	userPrompt := s.buildPrompt(req)

	var raw string
	err := s.router.Do(ctx, "extract-knowledge", req.Provider, func(ctx context.Context, ep providers.Endpoint) error {
		content, err := s.client.CompleteJSON(ctx, ep, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		raw = content
		return nil
	})
	if err != nil {
		return Knowledge{}, err
	}

	var knowledge Knowledge
	if err := llm.DecodeModelJSON(raw, &knowledge); err != nil {
		s.logger.Warn("provider response is not valid JSON, keeping raw text",
			logging.Error(err),
		)
		return Knowledge{
			Summary:    truncateRunes(raw, 500),
			ParseError: true,
			Raw:        raw,
		}, nil
	}
	knowledge.Raw = raw
	return knowledge, nil
}

func (s *Synthesizer) buildPrompt(req Request) string {
	template := loadTemplate(templateName(req.Intent))
	prompt := strings.Replace(template, "{{CONTENT}}", truncateRunes(req.Text, maxContentRunes), 1)

	if len(req.StyleContext) > 0 {
		if encoded, err := json.MarshalIndent(req.StyleContext, "", "  "); err == nil {
			prompt += "\n\n## Visual style analysis\n" + string(encoded)
		}
	}
	if req.Intent != IntentStyle && (req.DocType == DocTypeSkill || req.DocType == DocTypeBoth) {
		prompt += "\n\n" + skillHint
	}
	return prompt
}

func templateName(intent string) string {
	if intent == IntentStyle {
		return "style_analysis"
	}
	return "summarize"
}

func loadTemplate(name string) string {
	data, err := templates.ReadFile("templates/" + name + ".txt")
	if err != nil {
		// Embedded templates are part of the build; fall back to the bare
		// content marker if one is ever missing.
		return "{{CONTENT}}"
	}
	return string(data)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
