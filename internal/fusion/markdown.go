package fusion

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// extractedTextLimit bounds the raw text appended to the markdown document.
const extractedTextLimit = 5000

var titleCaser = cases.Title(language.English)

// FormatMarkdown renders a document as readable markdown.
func FormatMarkdown(doc Document) string {
	stem := stemOf(doc.Filename)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", titleCaser.String(strings.ReplaceAll(stem, "_", " ")))
	fmt.Fprintf(&b, "> Source: `%s` | Type: %s | Processing time: %s\n\n",
		doc.Filename, doc.SourceType, doc.ProcessingTime.Round(10*time.Millisecond))

	if k := doc.Knowledge; k != nil {
		if k.Summary != "" {
			b.WriteString("## Summary\n\n")
			b.WriteString(k.Summary)
			b.WriteString("\n\n")
		}
		if len(k.KeyPoints) > 0 {
			b.WriteString("## Key Points\n\n")
			for _, point := range k.KeyPoints {
				fmt.Fprintf(&b, "- %s\n", point)
			}
			b.WriteString("\n")
		}
		if len(k.Keywords) > 0 {
			b.WriteString("## Keywords\n\n")
			tags := make([]string, 0, len(k.Keywords))
			for _, kw := range k.Keywords {
				tags = append(tags, "`"+kw+"`")
			}
			b.WriteString(strings.Join(tags, " "))
			b.WriteString("\n\n")
		}
		if k.Structure.Type != "" || len(k.Structure.Sections) > 0 {
			b.WriteString("## Structure\n\n")
			if k.Structure.Type != "" {
				fmt.Fprintf(&b, "**Type**: %s\n\n", k.Structure.Type)
			}
			for _, section := range k.Structure.Sections {
				heading := section.Heading
				if heading == "" {
					heading = "Untitled"
				}
				fmt.Fprintf(&b, "### %s\n\n%s\n\n", heading, section.Content)
			}
		}
		if len(k.Rules) > 0 {
			b.WriteString("## Rules\n\n")
			for _, rule := range k.Rules {
				fmt.Fprintf(&b, "- %s\n", rule)
			}
			b.WriteString("\n")
		}
		if len(k.Steps) > 0 {
			b.WriteString("## Steps\n\n")
			for _, step := range k.Steps {
				fmt.Fprintf(&b, "%d. **%s** %s\n", step.StepNumber, step.Title, step.Summary)
			}
			b.WriteString("\n")
		}
	}

	if doc.ExtractedText != "" {
		b.WriteString("---\n\n<details>\n<summary>Extracted text</summary>\n\n")
		text := doc.ExtractedText
		if runes := []rune(text); len(runes) > extractedTextLimit {
			text = string(runes[:extractedTextLimit]) +
				fmt.Sprintf("\n\n... (%d characters total, truncated)", len(runes))
		}
		b.WriteString(text)
		b.WriteString("\n\n</details>\n\n")
	}

	if len(doc.Errors) > 0 {
		b.WriteString("---\n\n## Processing Warnings\n\n")
		for _, e := range doc.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func stemOf(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
