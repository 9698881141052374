package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must be set")
	}
	if c.Workflow.Concurrency <= 0 {
		problems = append(problems, "workflow.concurrency must be positive")
	}
	if c.Workflow.MaxTasks <= 0 {
		problems = append(problems, "workflow.max_tasks must be positive")
	}
	if c.Workflow.StageTimeoutSeconds > c.Workflow.TaskTimeoutSeconds {
		problems = append(problems, "workflow.stage_timeout_seconds must not exceed workflow.task_timeout_seconds")
	}

	seen := make(map[string]struct{}, len(c.LLM.Providers))
	for i, p := range c.LLM.Providers {
		if strings.TrimSpace(p.Name) == "" {
			problems = append(problems, fmt.Sprintf("llm.providers[%d].name must be set", i))
		}
		if strings.TrimSpace(p.BaseURL) == "" {
			problems = append(problems, fmt.Sprintf("llm.providers[%d].base_url must be set", i))
		}
		if _, dup := seen[p.Name]; dup {
			// Duplicate names collapse to the first occurrence at runtime;
			// flag them so the config stays honest.
			problems = append(problems, fmt.Sprintf("llm.providers[%d].name %q duplicates an earlier provider", i, p.Name))
		}
		seen[p.Name] = struct{}{}
	}

	switch c.Output.Format {
	case "markdown", "json":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q is not supported (markdown, json)", c.Output.Format))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}

// Warnings returns non-fatal configuration advisories surfaced at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	hasKey := false
	for _, p := range c.LLM.Providers {
		if p.APIKey != "" {
			hasKey = true
			break
		}
	}
	if !hasKey {
		warnings = append(warnings, "no synthesis provider API key configured; synthesis calls will fail")
	}
	if c.Tools.TranscriberCommand == "" {
		warnings = append(warnings, "tools.transcriber_command not set; audio/video extraction unavailable")
	}
	if c.Tools.OCRCommand == "" {
		warnings = append(warnings, "tools.ocr_command not set; image extraction unavailable")
	}
	if c.Tools.ConverterCommand == "" {
		warnings = append(warnings, "tools.converter_command not set; only txt/md/html documents extractable")
	}
	return warnings
}
