// Package synth distills extracted text into structured knowledge through
// JSON-mode chat completions, with provider fallback and lenient decoding of
// model output.
package synth
