// Package vdiff provides public constants for scripts and CI jobs
// that drive the vdiff CLI.
package vdiff

// Exit codes returned by the vdiff CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure (reference missing, render cycle aborted, etc.).
	ExitFailure = 1

	// ExitConfigError indicates an invalid configuration, verdict file, or command line.
	ExitConfigError = 2

	// ExitEnvError indicates an environment problem (no project root, missing directory, etc.).
	ExitEnvError = 3

	// ExitPersistenceError indicates the verdict file or saved images could not be written.
	ExitPersistenceError = 4
)
