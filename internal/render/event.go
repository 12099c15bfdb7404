package render

import (
	"fmt"
	"image"

	"github.com/AndreyAkinshin/vdiff/internal/imgdiff"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// EventKind identifies an orchestrator notification.
type EventKind int

const (
	// EventImageReady carries a backend's rendered image.
	EventImageReady EventKind = iota
	// EventDiffReady carries a backend's comparison against Reference.
	EventDiffReady
	// EventWarning reports a per-backend render or diff failure. The cycle continues.
	EventWarning
	// EventError reports a failure that prevents diffing, such as a missing reference.
	EventError
	// EventFinished is sent exactly once per cycle that was not superseded.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventImageReady:
		return "image"
	case EventDiffReady:
		return "diff"
	case EventWarning:
		return "warning"
	case EventError:
		return "error"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is a notification from a render cycle.
// Consumers should ignore events whose Generation is older than the last requested one.
type Event struct {
	Kind       EventKind
	Generation uint64
	Backend    model.Backend
	Image      image.Image     // EventImageReady
	Diff       *imgdiff.Result // EventDiffReady
	Err        error           // EventWarning, EventError
}

// DiffError reports a comparison that could not be computed for a backend
// whose render succeeded.
type DiffError struct {
	Backend model.Backend
	Err     error
}

func (e *DiffError) Error() string {
	return fmt.Sprintf("[%s] diff failed: %v", e.Backend, e.Err)
}

func (e *DiffError) Unwrap() error {
	return e.Err
}

// State is the orchestrator's progress through the current cycle.
type State int32

const (
	StateIdle State = iota
	StateRendering
	StateDiffing
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateDiffing:
		return "diffing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}
