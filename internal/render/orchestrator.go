// Package render runs render cycles: one SVG rendered by every registered backend
// in parallel, each result diffed against Reference.
//
// # Ownership
//
// A single loop goroutine (Run) owns the active cycle and the image cache.
// Render and diff tasks run on a bounded worker pool and report back to the
// loop over a channel; the loop is the only place cycle state changes. Each
// cycle has a generation number. Starting a cycle cancels the previous one,
// and completions tagged with an older generation are dropped on arrival.
package render

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/imgcache"
	"github.com/AndreyAkinshin/vdiff/internal/imgdiff"
	"github.com/AndreyAkinshin/vdiff/internal/logging"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// defaultEventBuffer is the Events channel capacity. One cycle emits at most
// three events per backend plus Finished.
const defaultEventBuffer = 4*model.BackendsCount + 1

// Request selects what a cycle renders.
type Request struct {
	ImgPath  string // Absolute SVG path; also the cache key
	BaseName string
	ViewSize int
	Scale    float64
	Suite    model.Suite
	// Backends restricts the cycle to a subset. Empty means every registered backend.
	// Reference is always included when registered.
	Backends []model.Backend
}

// renderData builds the per-backend invocation parameters shared by a cycle.
func (r Request) renderData() backend.RenderData {
	scale := r.Scale
	if scale <= 0 {
		scale = 1
	}
	return backend.RenderData{
		ViewSize:  r.ViewSize,
		ImageSize: backend.ImageSizeFor(r.ViewSize, scale),
		ImgPath:   r.ImgPath,
		BaseName:  r.BaseName,
		Suite:     r.Suite,
	}
}

// Options configures an Orchestrator.
type Options struct {
	Workers     int // Configured pool size, resolved via ParallelWorkers
	Diff        imgdiff.Options
	EventBuffer int // Events channel capacity; <= 0 uses a size fitting one full cycle
}

// Orchestrator schedules render cycles. Create with New, then start Run in a goroutine.
type Orchestrator struct {
	registry *backend.Registry
	diffOpts imgdiff.Options
	sem      chan struct{}

	events      chan Event
	completions chan completion
	wake        chan struct{}
	done        chan struct{}

	generation atomic.Uint64
	state      atomic.Int32

	mu            sync.Mutex
	pending       *pendingRequest
	cancelCurrent context.CancelFunc

	// Loop-owned.
	cache *imgcache.Cache
	cycle *cycle
}

type pendingRequest struct {
	gen uint64
	req Request
}

type taskKind int

const (
	taskRender taskKind = iota
	taskDiff
)

type completion struct {
	gen     uint64
	kind    taskKind
	backend model.Backend
	img     image.Image
	diff    *imgdiff.Result
	err     error
}

// cycle is the bookkeeping for one generation.
type cycle struct {
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	cacheKey string

	rendersLeft int // render tasks not yet completed
	tasksLeft   int // render + diff tasks not yet completed

	reference    image.Image
	refResolved  bool // reference rendered or failed
	waitingDiffs []waitingDiff
	finished     bool
}

type waitingDiff struct {
	backend model.Backend
	img     image.Image
}

// New creates an orchestrator over registry.
func New(registry *backend.Registry, opts Options) *Orchestrator {
	workers := ParallelWorkers(opts.Workers)
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}
	return &Orchestrator{
		registry:    registry,
		diffOpts:    opts.Diff,
		sem:         make(chan struct{}, workers),
		events:      make(chan Event, buf),
		completions: make(chan completion),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		cache:       imgcache.New(),
	}
}

// Events returns the notification channel. It is never closed.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State reports the progress of the most recently started cycle.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Generation returns the most recently requested generation.
func (o *Orchestrator) Generation() uint64 {
	return o.generation.Load()
}

// Workers returns the worker pool size.
func (o *Orchestrator) Workers() int {
	return cap(o.sem)
}

// Render requests a new cycle and returns its generation.
// The running cycle, if any, is canceled; only the latest request is started.
func (o *Orchestrator) Render(req Request) uint64 {
	gen := o.generation.Add(1)

	o.mu.Lock()
	o.pending = &pendingRequest{gen: gen, req: req}
	if o.cancelCurrent != nil {
		o.cancelCurrent()
	}
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return gen
}

// Run processes requests and task completions until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	defer func() {
		if o.cycle != nil {
			o.cycle.cancel()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.wake:
			o.startPending(ctx)
		case c := <-o.completions:
			o.handle(ctx, c)
		}
	}
}

func (o *Orchestrator) startPending(ctx context.Context) {
	o.mu.Lock()
	p := o.pending
	o.pending = nil
	o.mu.Unlock()
	if p == nil || p.gen != o.generation.Load() {
		return
	}

	if o.cycle != nil {
		o.cycle.cancel()
	}

	cctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancelCurrent = cancel
	o.mu.Unlock()

	data := p.req.renderData()
	c := &cycle{
		gen:      p.gen,
		ctx:      cctx,
		cancel:   cancel,
		cacheKey: fmt.Sprintf("%s@%dx%d", p.req.ImgPath, data.ImageSize.X, data.ImageSize.Y),
	}
	o.cycle = c
	o.state.Store(int32(StateRendering))

	if o.cache.SetKey(c.cacheKey) {
		logging.Logger().Debug("image cache flushed", "key", c.cacheKey)
	}
	logging.Logger().Debug("cycle started", "generation", c.gen, "path", p.req.ImgPath)

	backends := o.selectBackends(p.req.Backends)
	if _, ok := o.registry.Get(model.Reference); !ok {
		c.refResolved = true
		o.emit(ctx, Event{Kind: EventError, Generation: c.gen, Backend: model.Reference,
			Err: &backend.RenderError{Backend: model.Reference, Reason: backend.ReasonNotRegistered}})
	}

	for _, b := range backends {
		rr, ok := o.registry.Get(b)
		if !ok {
			o.emit(ctx, Event{Kind: EventWarning, Generation: c.gen, Backend: b,
				Err: &backend.RenderError{Backend: b, Reason: backend.ReasonNotRegistered}})
			continue
		}
		if img, ok := o.cache.Get(c.cacheKey, b); ok {
			o.onRendered(ctx, c, b, img, nil)
			continue
		}
		c.rendersLeft++
		c.tasksLeft++
		bd := data
		bd.Backend = b
		o.spawn(c, taskRender, b, func(ctx context.Context) completion {
			img, err := rr.Render(ctx, bd)
			return completion{img: img, err: err}
		})
	}

	o.checkFinished(ctx, c)
}

// selectBackends returns the backends to render, Reference first.
func (o *Orchestrator) selectBackends(requested []model.Backend) []model.Backend {
	registered := o.registry.Backends()
	if len(requested) == 0 {
		return registered
	}
	want := make(map[model.Backend]bool, len(requested)+1)
	for _, b := range requested {
		want[b] = true
	}
	want[model.Reference] = true

	var out []model.Backend
	for _, b := range model.AllBackends {
		if !want[b] {
			continue
		}
		if _, ok := o.registry.Get(b); ok || b != model.Reference {
			out = append(out, b)
		}
	}
	return out
}

// spawn runs task on the worker pool and reports its completion to the loop.
func (o *Orchestrator) spawn(c *cycle, kind taskKind, b model.Backend, task func(ctx context.Context) completion) {
	gen, ctx := c.gen, c.ctx
	go func() {
		var res completion
		select {
		case o.sem <- struct{}{}:
			res = task(ctx)
			<-o.sem
		case <-ctx.Done():
			res = completion{err: &backend.RenderError{Backend: b, Reason: backend.ReasonCanceled, Err: ctx.Err()}}
		}
		res.gen, res.kind, res.backend = gen, kind, b

		select {
		case o.completions <- res:
		case <-o.done:
		}
	}()
}

func (o *Orchestrator) handle(ctx context.Context, res completion) {
	c := o.cycle
	if c == nil || res.gen != c.gen || c.finished || res.gen != o.generation.Load() {
		logging.Logger().Debug("dropping stale completion", "generation", res.gen, "backend", res.backend.Key())
		return
	}

	c.tasksLeft--
	switch res.kind {
	case taskRender:
		c.rendersLeft--
		if res.err == nil {
			o.cache.Put(c.cacheKey, res.backend, res.img)
		}
		o.onRendered(ctx, c, res.backend, res.img, res.err)
	case taskDiff:
		if res.err != nil {
			o.emit(ctx, Event{Kind: EventWarning, Generation: c.gen, Backend: res.backend, Err: res.err})
		} else {
			o.emit(ctx, Event{Kind: EventDiffReady, Generation: c.gen, Backend: res.backend, Diff: res.diff})
		}
	}

	if c.rendersLeft == 0 && c.tasksLeft > 0 {
		o.state.Store(int32(StateDiffing))
	}
	o.checkFinished(ctx, c)
}

// onRendered records one backend's render outcome and schedules the diffs it unblocks.
func (o *Orchestrator) onRendered(ctx context.Context, c *cycle, b model.Backend, img image.Image, err error) {
	if b == model.Reference {
		c.refResolved = true
		if err != nil {
			o.emit(ctx, Event{Kind: EventError, Generation: c.gen, Backend: b, Err: err})
			if len(c.waitingDiffs) > 0 {
				logging.Logger().Debug("reference failed, skipping diffs", "generation", c.gen, "waiting", len(c.waitingDiffs))
			}
			c.waitingDiffs = nil
			return
		}
		c.reference = img
		o.emit(ctx, Event{Kind: EventImageReady, Generation: c.gen, Backend: b, Image: img})
		for _, w := range c.waitingDiffs {
			o.submitDiff(c, w.backend, w.img)
		}
		c.waitingDiffs = nil
		return
	}

	if err != nil {
		o.emit(ctx, Event{Kind: EventWarning, Generation: c.gen, Backend: b, Err: err})
		return
	}
	o.emit(ctx, Event{Kind: EventImageReady, Generation: c.gen, Backend: b, Image: img})

	switch {
	case c.reference != nil:
		o.submitDiff(c, b, img)
	case !c.refResolved:
		c.waitingDiffs = append(c.waitingDiffs, waitingDiff{backend: b, img: img})
	}
}

func (o *Orchestrator) submitDiff(c *cycle, b model.Backend, img image.Image) {
	c.tasksLeft++
	ref, opts := c.reference, o.diffOpts
	o.spawn(c, taskDiff, b, func(context.Context) completion {
		res, err := imgdiff.Compare(ref, img, opts)
		if err != nil {
			return completion{err: &DiffError{Backend: b, Err: err}}
		}
		return completion{diff: res}
	})
}

func (o *Orchestrator) checkFinished(ctx context.Context, c *cycle) {
	if c.finished || c.tasksLeft > 0 {
		return
	}
	c.finished = true
	c.cancel()
	o.state.Store(int32(StateFinished))
	hits, misses := o.cache.Stats()
	logging.Logger().Debug("cycle finished", "generation", c.gen, "cache_hits", hits, "cache_misses", misses)
	o.emit(ctx, Event{Kind: EventFinished, Generation: c.gen})
}

// emit delivers an event unless the orchestrator is shutting down.
func (o *Orchestrator) emit(ctx context.Context, e Event) {
	select {
	case o.events <- e:
	case <-ctx.Done():
	}
}
