// Package llm implements a minimal OpenAI-compatible chat completion client.
// Each call targets a single provider endpoint; retry policy and provider
// fallback are handled by the retry and providers packages.
package llm
