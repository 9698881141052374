package fusion

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output formats supported by Emit.
const (
	FormatMarkdownName = "markdown"
	FormatJSONName     = "json"
)

// Emit renders the document in the requested format and writes it under
// outputDir as <stem>_distilled.<ext>. It returns the written path.
func Emit(doc Document, outputDir, format string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("fusion: ensure output dir: %w", err)
	}
	stem := stemOf(doc.Filename)

	var path string
	var data []byte
	switch format {
	case FormatJSONName:
		encoded, err := FormatJSON(doc)
		if err != nil {
			return "", fmt.Errorf("fusion: encode json: %w", err)
		}
		path = filepath.Join(outputDir, stem+"_distilled.json")
		data = encoded
	case FormatMarkdownName, "":
		path = filepath.Join(outputDir, stem+"_distilled.md")
		data = []byte(FormatMarkdown(doc))
	default:
		return "", fmt.Errorf("fusion: unsupported output format %q", format)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("fusion: write output: %w", err)
	}
	return path, nil
}
