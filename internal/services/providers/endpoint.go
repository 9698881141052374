package providers

import (
	"strings"
	"time"

	"distill/internal/config"
)

// Endpoint is one named remote backend with its connection parameters.
// Endpoints are immutable after configuration load.
type Endpoint struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// FromConfig converts configured providers into endpoints, preserving order.
func FromConfig(providers []config.Provider) []Endpoint {
	endpoints := make([]Endpoint, 0, len(providers))
	for _, p := range providers {
		endpoints = append(endpoints, Endpoint{
			Name:    strings.ToLower(strings.TrimSpace(p.Name)),
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Model:   p.Model,
			Timeout: p.Timeout(),
		})
	}
	return endpoints
}

// Dedupe removes endpoints with repeated names, keeping the first occurrence
// and preserving order.
func Dedupe(endpoints []Endpoint) []Endpoint {
	seen := make(map[string]struct{}, len(endpoints))
	out := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, ok := seen[ep.Name]; ok {
			continue
		}
		seen[ep.Name] = struct{}{}
		out = append(out, ep)
	}
	return out
}
