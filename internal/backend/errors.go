package backend

import (
	"errors"
	"fmt"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Reason classifies why a render failed.
// When adding a Reason, also extend RenderError.Error.
type Reason string

const (
	// ReasonToolNotFound indicates the backend executable is not installed.
	ReasonToolNotFound Reason = "tool_not_found"
	// ReasonExitStatus indicates the tool exited with a non-zero status.
	ReasonExitStatus Reason = "exit_status"
	// ReasonTimeout indicates the render exceeded its time limit.
	ReasonTimeout Reason = "timeout"
	// ReasonBadOutput indicates the tool succeeded but produced no decodable image.
	ReasonBadOutput Reason = "bad_output"
	// ReasonCanceled indicates the render was abandoned because its cycle was superseded.
	ReasonCanceled Reason = "canceled"
	// ReasonNoReference indicates no reference image is available for the test.
	ReasonNoReference Reason = "no_reference"
	// ReasonNotRegistered indicates no renderer is registered for the backend.
	ReasonNotRegistered Reason = "not_registered"
)

// RenderError is a per-backend render failure.
//
// It is separate from errors.VdiffError: a RenderError is an outcome recorded
// against one backend (usually as a Crashed verdict) and never aborts a cycle.
type RenderError struct {
	Backend model.Backend
	Reason  Reason
	Detail  string // Tool stderr, missing executable name, or reference path
	Err     error
}

func (e *RenderError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Backend)
	var msg string
	switch e.Reason {
	case ReasonToolNotFound:
		msg = fmt.Sprintf("%s %s not found", prefix, e.Detail)
	case ReasonExitStatus:
		msg = prefix + " renderer failed"
	case ReasonTimeout:
		msg = prefix + " render timed out"
	case ReasonBadOutput:
		msg = prefix + " renderer produced no image"
	case ReasonCanceled:
		msg = prefix + " render canceled"
	case ReasonNoReference:
		msg = fmt.Sprintf("%s no reference image at %s", prefix, e.Detail)
	case ReasonNotRegistered:
		msg = prefix + " backend is not enabled"
	default:
		msg = fmt.Sprintf("%s render failed (%s)", prefix, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Reason == ReasonExitStatus && e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsRenderError returns true if the error is or wraps a RenderError.
func IsRenderError(err error) bool {
	var rErr *RenderError
	return errors.As(err, &rErr)
}

// AsRenderError returns the RenderError in err's chain, if any.
func AsRenderError(err error) (*RenderError, bool) {
	var rErr *RenderError
	if errors.As(err, &rErr) {
		return rErr, true
	}
	return nil, false
}
