// Package config loads and validates the distill configuration file.
//
// Configuration comes from a TOML file (~/.config/distill/config.toml or
// ./distill.toml), layered over repository defaults. Secrets are resolved
// from the environment, with .env support for development. Load returns a
// fully normalized config: paths expanded, zero values replaced, provider
// API keys resolved.
package config
