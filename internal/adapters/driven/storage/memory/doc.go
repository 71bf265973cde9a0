// Package memory provides in-memory implementations of the driven storage
// ports. They back tests and the --ephemeral CLI mode.
package memory
