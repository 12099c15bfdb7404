package render

import (
	"context"
	"errors"
	"image"

	"github.com/AndreyAkinshin/vdiff/internal/imgdiff"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// ErrSuperseded is returned by RunCycle when a newer request replaced the cycle.
var ErrSuperseded = errors.New("render cycle superseded by a newer request")

// CycleResult collects every event of one finished cycle.
type CycleResult struct {
	Generation uint64
	Images     map[model.Backend]image.Image
	Diffs      map[model.Backend]*imgdiff.Result
	// Failures holds render errors per backend, Reference included.
	Failures map[model.Backend]error
	// DiffFailures holds comparisons that could not be computed. They carry no verdict.
	DiffFailures map[model.Backend]*DiffError
}

func newCycleResult(gen uint64) *CycleResult {
	return &CycleResult{
		Generation:   gen,
		Images:       make(map[model.Backend]image.Image),
		Diffs:        make(map[model.Backend]*imgdiff.Result),
		Failures:     make(map[model.Backend]error),
		DiffFailures: make(map[model.Backend]*DiffError),
	}
}

// ReferenceFailed reports whether the cycle had no reference image to diff against.
func (r *CycleResult) ReferenceFailed() bool {
	_, ok := r.Failures[model.Reference]
	return ok
}

// Apply records one event of the result's generation. Other generations are ignored.
// It reports whether the event finished the cycle.
func (r *CycleResult) Apply(e Event) bool {
	if e.Generation != r.Generation {
		return false
	}
	switch e.Kind {
	case EventImageReady:
		r.Images[e.Backend] = e.Image
	case EventDiffReady:
		r.Diffs[e.Backend] = e.Diff
	case EventWarning, EventError:
		var de *DiffError
		if errors.As(e.Err, &de) {
			r.DiffFailures[e.Backend] = de
		} else {
			r.Failures[e.Backend] = e.Err
		}
	case EventFinished:
		return true
	}
	return false
}

// RunCycle requests a cycle and blocks until it finishes.
//
// RunCycle consumes Events, so it must be the only reader. The orchestrator's
// Run loop must already be running. If another request supersedes this one,
// ErrSuperseded is returned along with whatever was collected.
func (o *Orchestrator) RunCycle(ctx context.Context, req Request) (*CycleResult, error) {
	return o.collect(ctx, o.Render(req), nil)
}

// collect reads events until generation gen finishes. onEvent, if set, sees every
// event of gen as it arrives.
func (o *Orchestrator) collect(ctx context.Context, gen uint64, onEvent func(Event)) (*CycleResult, error) {
	res := newCycleResult(gen)
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case e := <-o.events:
			if e.Generation == gen && onEvent != nil {
				onEvent(e)
			}
			if res.Apply(e) {
				return res, nil
			}
			if o.Generation() != gen {
				return res, ErrSuperseded
			}
		}
	}
}

// RunCycleWithEvents is RunCycle with a callback for each event as it arrives.
func (o *Orchestrator) RunCycleWithEvents(ctx context.Context, req Request, onEvent func(Event)) (*CycleResult, error) {
	return o.collect(ctx, o.Render(req), onEvent)
}
