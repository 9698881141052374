// Package daemon hosts the long-running distill process: it enforces
// single-instance execution with a lock file, owns the workflow runner, and
// serves the HTTP API the CLI talks to.
package daemon
