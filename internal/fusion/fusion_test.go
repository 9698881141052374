package fusion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"distill/internal/synth"
)

func sampleDocument() Document {
	return Document{
		Filename:      "baking_basics.mp4",
		SourceType:    "video",
		SourcePath:    "/data/uploads/baking_basics.mp4",
		ExtractedText: "Transcript of the talk.",
		Knowledge: &synth.Knowledge{
			Summary:   "A primer on sourdough.",
			KeyPoints: []string{"Feed the starter daily."},
			Keywords:  []string{"baking", "sourdough"},
			Structure: synth.Structure{
				Type: "talk",
				Sections: []synth.Section{
					{Heading: "Starter", Content: "Feeding schedule."},
				},
			},
		},
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		ProcessingTime: 42 * time.Second,
		Errors:         []string{"style: no style analyzer configured"},
	}
}

func TestNormalizeDeduplicates(t *testing.T) {
	knowledge := &synth.Knowledge{
		Keywords:  []string{"Baking", "baking", " sourdough ", "", "yeast"},
		KeyPoints: []string{"Feed daily.", "feed daily.", "Use a scale."},
	}
	Normalize(knowledge, "")
	if len(knowledge.Keywords) != 3 {
		t.Fatalf("unexpected keywords: %v", knowledge.Keywords)
	}
	if knowledge.Keywords[0] != "Baking" || knowledge.Keywords[1] != "sourdough" {
		t.Fatalf("expected first occurrences kept: %v", knowledge.Keywords)
	}
	if len(knowledge.KeyPoints) != 2 {
		t.Fatalf("unexpected key points: %v", knowledge.KeyPoints)
	}
}

func TestNormalizeBackfillsSummary(t *testing.T) {
	knowledge := &synth.Knowledge{}
	long := strings.Repeat("word ", 100)
	Normalize(knowledge, long)
	if knowledge.Summary == "" {
		t.Fatal("expected summary backfilled from extracted text")
	}
	if !strings.HasSuffix(knowledge.Summary, "...") {
		t.Fatalf("expected truncation marker, got %q", knowledge.Summary)
	}
}

func TestFormatMarkdown(t *testing.T) {
	out := FormatMarkdown(sampleDocument())
	for _, want := range []string{
		"# Baking Basics",
		"## Summary",
		"A primer on sourdough.",
		"- Feed the starter daily.",
		"`baking` `sourdough`",
		"**Type**: talk",
		"### Starter",
		"<summary>Extracted text</summary>",
		"## Processing Warnings",
		"- style: no style analyzer configured",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestFormatMarkdownTruncatesExtractedText(t *testing.T) {
	doc := sampleDocument()
	doc.ExtractedText = strings.Repeat("a", 6000)
	out := FormatMarkdown(doc)
	if !strings.Contains(out, "6000 characters total, truncated") {
		t.Fatal("expected truncation note for long extracted text")
	}
}

func TestFormatJSON(t *testing.T) {
	encoded, err := FormatJSON(sampleDocument())
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded struct {
		Source struct {
			Filename string `json:"filename"`
			Type     string `json:"type"`
		} `json:"source"`
		AIAnalysis struct {
			Summary string `json:"summary"`
		} `json:"ai_analysis"`
		Metadata struct {
			ProcessingTimeSec float64  `json:"processing_time_sec"`
			CreatedAt         string   `json:"created_at"`
			Errors            []string `json:"errors"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.Source.Filename != "baking_basics.mp4" || decoded.Source.Type != "video" {
		t.Fatalf("unexpected source: %+v", decoded.Source)
	}
	if decoded.AIAnalysis.Summary != "A primer on sourdough." {
		t.Fatalf("unexpected summary: %q", decoded.AIAnalysis.Summary)
	}
	if decoded.Metadata.ProcessingTimeSec != 42 {
		t.Fatalf("unexpected processing time: %v", decoded.Metadata.ProcessingTimeSec)
	}
	if len(decoded.Metadata.Errors) != 1 {
		t.Fatalf("unexpected errors: %v", decoded.Metadata.Errors)
	}
}

func TestEmit(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	path, err := Emit(doc, dir, FormatMarkdownName)
	if err != nil {
		t.Fatalf("Emit markdown: %v", err)
	}
	if filepath.Base(path) != "baking_basics_distilled.md" {
		t.Fatalf("unexpected markdown path: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat output: %v", err)
	}

	path, err = Emit(doc, dir, FormatJSONName)
	if err != nil {
		t.Fatalf("Emit json: %v", err)
	}
	if filepath.Base(path) != "baking_basics_distilled.json" {
		t.Fatalf("unexpected json path: %s", path)
	}

	if _, err := Emit(doc, dir, "yaml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
