package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tag failures with a stable classification. Wrap attaches
// one of these markers; Kind and Details recover the classification later
// without inspecting error strings.
var (
	ErrUnsupportedInput = errors.New("unsupported input kind")
	ErrStageTimeout     = errors.New("stage timeout")
	ErrProviderCall     = errors.New("provider call failed")
	ErrAllProviders     = errors.New("all providers failed")
	ErrPipelineTimeout  = errors.New("pipeline timeout")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrShutdown         = errors.New("shutting down")
	ErrTransient        = errors.New("transient failure")
)

// Error kind strings surfaced in task views and API payloads. These are part
// of the external contract; do not rename.
const (
	KindUnsupportedInput = "unsupported_input"
	KindStageTimeout     = "stage_timeout"
	KindStageFailure     = "stage_failure"
	KindProviderCall     = "provider_call_failed"
	KindAllProviders     = "all_providers_failed"
	KindPipelineTimeout  = "pipeline_timeout"
	KindNotFound         = "not_found"
	KindValidation       = "validation"
	KindConfiguration    = "configuration"
	KindShutdown         = "shutdown"
)

// maxDetailMessage caps the human message stored on failed tasks so raw
// payload dumps never leak through the task view.
const maxDetailMessage = 300

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its stable classification string.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedInput):
		return KindUnsupportedInput
	case errors.Is(err, ErrStageTimeout):
		return KindStageTimeout
	case errors.Is(err, ErrPipelineTimeout):
		return KindPipelineTimeout
	case errors.Is(err, ErrAllProviders):
		return KindAllProviders
	case errors.Is(err, ErrProviderCall):
		return KindProviderCall
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrShutdown):
		return KindShutdown
	default:
		return KindStageFailure
	}
}

// ErrorDetails is the classification plus a bounded human message for one error.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details extracts the kind and a truncated message suitable for task records.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	message := strings.TrimSpace(err.Error())
	if len(message) > maxDetailMessage {
		message = message[:maxDetailMessage] + "..."
	}
	return ErrorDetails{Kind: Kind(err), Message: message}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
