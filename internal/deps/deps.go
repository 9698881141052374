// Package deps checks the availability of the external extraction tools the
// pipeline shells out to. All tools are optional; a missing one only narrows
// which source kinds can be processed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"distill/internal/config"
)

// Requirement defines one external tool a pipeline stage relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// FromTools builds the requirement list from the configured tool commands.
// Only the binary name matters for the lookup; arguments are dropped.
func FromTools(tools config.Tools) []Requirement {
	return []Requirement{
		{Name: "transcriber", Command: binaryOf(tools.TranscriberCommand), Description: "audio and video transcription"},
		{Name: "ocr", Command: binaryOf(tools.OCRCommand), Description: "image text recognition"},
		{Name: "converter", Command: binaryOf(tools.ConverterCommand), Description: "binary document conversion"},
		{Name: "style-analyzer", Command: binaryOf(tools.StyleCommand), Description: "visual style analysis"},
		{Name: "video-analyzer", Command: binaryOf(tools.VideoStyleCommand), Description: "video style analysis"},
	}
}

// Check evaluates the provided requirements and reports availability.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     req.Command,
			Description: req.Description,
		}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(req.Command); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

func binaryOf(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
