// Package analysis wraps the external visual style analyzer used when a task
// asks for style analysis of image sources.
package analysis
