// Command distill is the CLI for the distill daemon: it submits files for
// processing, inspects task state, and manages configuration.
package main
