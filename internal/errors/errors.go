// Package errors provides structured error types and exit codes for vdiff.
//
// Two families of failures exist. VdiffError covers stop-the-world conditions
// (unreadable or malformed verdict file, failed save, bad configuration): the
// verdict matrix cannot be trusted, so they always reach the caller. Per-backend
// render and diff failures are reported as backend.RenderError values inside a
// render cycle and never escalate beyond the backend they belong to.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (command failed, etc.)
	ExitConfigError      = 2 // Configuration or corpus load error
	ExitEnvironmentError = 3 // Environment error (no project root, missing tool, etc.)
	ExitPersistenceError = 4 // Verdict file could not be written
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
	KindCorpusLoad
	KindRender
	KindDiff
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindConfig:
		return "config"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindEnvironment:
		return "environment"
	case KindCorpusLoad:
		return "corpus load"
	case KindRender:
		return "render"
	case KindDiff:
		return "diff"
	case KindPersistence:
		return "persistence"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// VdiffError is the base error type for vdiff.
type VdiffError struct {
	Kind    ErrorKind
	Message string
	Path    string // File path if applicable
	Row     int    // 1-based row in the verdict file, 0 if not applicable
	Backend string // Backend name if applicable
	Cause   error  // Underlying error
}

func (e *VdiffError) Error() string {
	var prefix string
	switch {
	case e.Path != "" && e.Row > 0:
		prefix = fmt.Sprintf("%s:%d: ", e.Path, e.Row)
	case e.Path != "":
		prefix = e.Path + ": "
	}
	if e.Backend != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Backend, prefix)
	}
	msg := prefix + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *VdiffError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *VdiffError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation, KindCorpusLoad:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	case KindPersistence:
		return ExitPersistenceError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *VdiffError {
	return &VdiffError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *VdiffError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *VdiffError {
	return &VdiffError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *VdiffError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *VdiffError {
	return &VdiffError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *VdiffError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *VdiffError {
	return &VdiffError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// CorpusLoad creates a verdict-file load error. Row is 1-based (the header is row 1);
// pass 0 when the failure is not tied to a row.
func CorpusLoad(path string, row int, message string) *VdiffError {
	return &VdiffError{
		Kind:    KindCorpusLoad,
		Message: message,
		Path:    path,
		Row:     row,
	}
}

// CorpusLoadf creates a verdict-file load error with formatting.
func CorpusLoadf(path string, row int, format string, args ...interface{}) *VdiffError {
	return CorpusLoad(path, row, fmt.Sprintf(format, args...))
}

// Persistence creates an error for a verdict file that could not be written.
func Persistence(path string, cause error) *VdiffError {
	return &VdiffError{
		Kind:    KindPersistence,
		Message: "failed to write verdict file",
		Path:    path,
		Cause:   cause,
	}
}

// BackendError creates a render or diff error scoped to one backend.
func BackendError(kind ErrorKind, backend, message string, cause error) *VdiffError {
	return &VdiffError{
		Kind:    kind,
		Backend: backend,
		Message: message,
		Cause:   cause,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *VdiffError {
	return &VdiffError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// IsKind reports whether err is or wraps a VdiffError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *VdiffError
	if stderrors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ve *VdiffError
	if stderrors.As(err, &ve) {
		return ve.ExitCode()
	}
	return ExitRuntimeError
}
