// Package services defines the error taxonomy and context annotations shared
// by pipeline stages and external-service clients.
//
// Errors are classified by wrapping them with sentinel markers; the workflow
// runner recovers a stable kind string from any escaping error when recording
// a task's terminal failure. Subpackages hold the resilient call executor
// (retry), the provider fallback router (providers), and the concrete remote
// clients (llm, storage).
package services
