package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/imgdiff"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/testing/mocks"
)

const testTimeout = 5 * time.Second

func startOrchestrator(t *testing.T, opts Options, renderers ...backend.Renderer) *Orchestrator {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	o := New(backend.NewRegistry(renderers...), opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return o
}

func request(path string) Request {
	return Request{ImgPath: path, BaseName: path, ViewSize: mocks.DefaultSize, Scale: 1}
}

func runCycle(t *testing.T, o *Orchestrator, req Request) *CycleResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	res, err := o.RunCycle(ctx, req)
	if err != nil {
		t.Fatalf("RunCycle(%s) error = %v", req.ImgPath, err)
	}
	return res
}

// drainUntilFinished records every event up to and including gen's Finished.
func drainUntilFinished(t *testing.T, o *Orchestrator, gen uint64) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(testTimeout)
	for {
		select {
		case e := <-o.Events():
			events = append(events, e)
			if e.Kind == EventFinished && e.Generation == gen {
				return events
			}
		case <-timeout:
			t.Fatalf("generation %d did not finish; events so far: %v", gen, events)
		}
	}
}

// waitFor polls cond until it holds or the test timeout expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func collectResult(gen uint64, events []Event) *CycleResult {
	res := newCycleResult(gen)
	for _, e := range events {
		res.Apply(e)
	}
	return res
}

func TestRunCycle_AllBackendsIdentical(t *testing.T) {
	o := startOrchestrator(t, Options{},
		mocks.NewRenderer(model.Reference),
		mocks.NewRenderer(model.Chrome),
		mocks.NewRenderer(model.Resvg),
	)

	res := runCycle(t, o, request("/t/a.svg"))

	if len(res.Images) != 3 {
		t.Errorf("len(Images) = %d, want 3", len(res.Images))
	}
	if len(res.Diffs) != 2 {
		t.Errorf("len(Diffs) = %d, want 2", len(res.Diffs))
	}
	if len(res.Failures) != 0 {
		t.Errorf("Failures = %v, want none", res.Failures)
	}
	if _, ok := res.Diffs[model.Reference]; ok {
		t.Error("Reference must not be diffed against itself")
	}
	for _, b := range []model.Backend{model.Chrome, model.Resvg} {
		d, ok := res.Diffs[b]
		if !ok {
			t.Fatalf("no diff for %s", b)
		}
		if d.Mismatch != 0 || d.Percent != 0 {
			t.Errorf("%s diff = %d (%.2f%%), want 0", b, d.Mismatch, d.Percent)
		}
	}
	if o.State() != StateFinished {
		t.Errorf("State() = %v, want finished", o.State())
	}
}

func TestRunCycle_DiffMismatch(t *testing.T) {
	o := startOrchestrator(t, Options{Diff: imgdiff.DefaultOptions()},
		mocks.NewRenderer(model.Reference).WithColor(color.White),
		mocks.NewRenderer(model.Batik).WithColor(color.Black),
	)

	res := runCycle(t, o, request("/t/a.svg"))

	d, ok := res.Diffs[model.Batik]
	if !ok {
		t.Fatal("no diff for Batik")
	}
	if d.Mismatch != mocks.DefaultSize*mocks.DefaultSize {
		t.Errorf("Mismatch = %d, want %d", d.Mismatch, mocks.DefaultSize*mocks.DefaultSize)
	}
	if d.Percent != 100 {
		t.Errorf("Percent = %.2f, want 100", d.Percent)
	}
}

func TestRunCycle_DiffFailureIsAWarning(t *testing.T) {
	o := startOrchestrator(t, Options{Diff: imgdiff.Options{Tolerance: 300}},
		mocks.NewRenderer(model.Reference),
		mocks.NewRenderer(model.Chrome),
	)

	gen := o.Render(request("/t/a.svg"))
	events := drainUntilFinished(t, o, gen)

	var warned bool
	for _, e := range events {
		if e.Generation != gen || e.Backend != model.Chrome {
			continue
		}
		switch e.Kind {
		case EventDiffReady:
			t.Error("Chrome produced a diff despite the comparison failing")
		case EventWarning:
			var de *DiffError
			if !errors.As(e.Err, &de) || de.Backend != model.Chrome {
				t.Errorf("warning error = %v, want a Chrome DiffError", e.Err)
			}
			warned = true
		}
	}
	if !warned {
		t.Error("no warning for the failed comparison")
	}

	res := collectResult(gen, events)
	if _, ok := res.DiffFailures[model.Chrome]; !ok {
		t.Error("DiffFailures missing Chrome")
	}
	if _, ok := res.Failures[model.Chrome]; ok {
		t.Error("diff failure recorded as a render failure")
	}
	if _, ok := res.Images[model.Chrome]; !ok {
		t.Error("Chrome image missing")
	}
	if v := res.Verdicts(0); len(v) != 0 {
		t.Errorf("Verdicts() = %v, want none", v)
	}
}

func TestRunCycle_TimeoutStillFinishes(t *testing.T) {
	o := startOrchestrator(t, Options{},
		mocks.NewRenderer(model.Reference),
		mocks.NewRenderer(model.Chrome).WithFailure(backend.ReasonTimeout),
		mocks.NewRenderer(model.Firefox),
	)

	gen := o.Render(request("/t/a.svg"))
	events := drainUntilFinished(t, o, gen)

	var finished int
	for _, e := range events {
		if e.Generation != gen {
			continue
		}
		if e.Kind == EventFinished {
			finished++
		}
		if e.Backend == model.Chrome && (e.Kind == EventDiffReady || e.Kind == EventImageReady) {
			t.Errorf("Chrome produced a %v event after timing out", e.Kind)
		}
	}
	if finished != 1 {
		t.Errorf("Finished events = %d, want 1", finished)
	}

	res := collectResult(gen, events)
	rErr, ok := backend.AsRenderError(res.Failures[model.Chrome])
	if !ok {
		t.Fatalf("Failures[Chrome] = %v, want a RenderError", res.Failures[model.Chrome])
	}
	if rErr.Reason != backend.ReasonTimeout {
		t.Errorf("Reason = %v, want timeout", rErr.Reason)
	}
	if _, ok := res.Diffs[model.Firefox]; !ok {
		t.Error("Firefox diff missing")
	}
}

func TestRunCycle_DiffWaitsForReference(t *testing.T) {
	gate := make(chan struct{})
	ref := mocks.NewRenderer(model.Reference).WithGate(gate)
	resvg := mocks.NewRenderer(model.Resvg)
	o := startOrchestrator(t, Options{}, ref, resvg)

	gen := o.Render(request("/t/a.svg"))

	select {
	case e := <-o.Events():
		if e.Kind != EventImageReady || e.Backend != model.Resvg {
			t.Fatalf("first event = %v %v, want resvg image", e.Kind, e.Backend)
		}
	case <-time.After(testTimeout):
		t.Fatal("resvg image never arrived")
	}

	select {
	case e := <-o.Events():
		t.Fatalf("unexpected event before reference: %v %v", e.Kind, e.Backend)
	case <-time.After(50 * time.Millisecond):
	}
	if o.State() != StateRendering {
		t.Errorf("State() = %v, want rendering", o.State())
	}

	close(gate)
	events := drainUntilFinished(t, o, gen)

	kinds := make([]EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	want := []EventKind{EventImageReady, EventDiffReady, EventFinished}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	if events[0].Backend != model.Reference {
		t.Errorf("events[0].Backend = %v, want Reference", events[0].Backend)
	}
	if events[1].Backend != model.Resvg {
		t.Errorf("events[1].Backend = %v, want resvg", events[1].Backend)
	}
}

func TestRunCycle_ReferenceFailure(t *testing.T) {
	o := startOrchestrator(t, Options{},
		mocks.NewRenderer(model.Reference).WithFailure(backend.ReasonNoReference),
		mocks.NewRenderer(model.Chrome),
		mocks.NewRenderer(model.Inkscape),
	)

	res := runCycle(t, o, request("/t/a.svg"))

	if !res.ReferenceFailed() {
		t.Error("ReferenceFailed() = false, want true")
	}
	if len(res.Diffs) != 0 {
		t.Errorf("Diffs = %v, want none", res.Diffs)
	}
	for _, b := range []model.Backend{model.Chrome, model.Inkscape} {
		if _, ok := res.Images[b]; !ok {
			t.Errorf("%s image missing", b)
		}
	}
	if _, ok := res.Failures[model.Chrome]; ok {
		t.Error("Chrome must not fail because Reference did")
	}
}

func TestRunCycle_NoReferenceRegistered(t *testing.T) {
	o := startOrchestrator(t, Options{}, mocks.NewRenderer(model.Chrome))

	res := runCycle(t, o, request("/t/a.svg"))

	if !res.ReferenceFailed() {
		t.Error("ReferenceFailed() = false, want true")
	}
	if _, ok := res.Images[model.Chrome]; !ok {
		t.Error("Chrome image missing")
	}
	if len(res.Diffs) != 0 {
		t.Errorf("Diffs = %v, want none", res.Diffs)
	}
}

func TestRunCycle_SecondCycleDropsLateResults(t *testing.T) {
	gateA := make(chan struct{})
	var returnedA atomic.Bool
	chrome := mocks.NewRenderer(model.Chrome).WithRenderFunc(func(_ context.Context, data backend.RenderData) (image.Image, error) {
		if data.ImgPath == "/t/a.svg" {
			<-gateA // ignores cancellation, like a tool that finishes anyway
			defer returnedA.Store(true)
			return mocks.Solid(4, 4, color.Black), nil
		}
		return mocks.Solid(4, 4, color.White), nil
	})
	o := startOrchestrator(t, Options{}, mocks.NewRenderer(model.Reference), chrome)

	gen1 := o.Render(request("/t/a.svg"))
	waitFor(t, "first chrome render", func() bool { return chrome.RenderCount() == 1 })

	gen2 := o.Render(request("/t/b.svg"))
	events := drainUntilFinished(t, o, gen2)

	close(gateA)
	waitFor(t, "superseded render to return", returnedA.Load)
	time.Sleep(20 * time.Millisecond)

	gen3 := o.Render(request("/t/b.svg"))
	events = append(events, drainUntilFinished(t, o, gen3)...)

	for _, e := range events {
		if e.Generation != gen1 {
			continue
		}
		if e.Kind == EventFinished {
			t.Error("superseded cycle must not finish")
		}
		if e.Backend == model.Chrome && e.Kind == EventImageReady {
			t.Error("late result from superseded cycle leaked")
		}
	}

	res2 := collectResult(gen2, events)
	d, ok := res2.Diffs[model.Chrome]
	if !ok {
		t.Fatal("second cycle has no Chrome diff")
	}
	if d.Mismatch != 0 {
		t.Errorf("second cycle Mismatch = %d, want 0", d.Mismatch)
	}
}

func TestRunCycle_CacheReuse(t *testing.T) {
	ref := mocks.NewRenderer(model.Reference)
	chrome := mocks.NewRenderer(model.Chrome)
	o := startOrchestrator(t, Options{}, ref, chrome)

	runCycle(t, o, request("/t/a.svg"))
	res := runCycle(t, o, request("/t/a.svg"))

	if ref.RenderCount() != 1 || chrome.RenderCount() != 1 {
		t.Errorf("render counts = (%d, %d), want (1, 1)", ref.RenderCount(), chrome.RenderCount())
	}
	if _, ok := res.Diffs[model.Chrome]; !ok {
		t.Error("cached images are still diffed")
	}
	if hits, misses := o.cache.Stats(); hits != 2 || misses != 2 {
		t.Errorf("cache Stats() = (%d, %d), want (2, 2)", hits, misses)
	}

	runCycle(t, o, request("/t/b.svg"))
	if got := chrome.RenderCount(); got != 2 {
		t.Errorf("chrome renders after test change = %d, want 2", got)
	}

	req := request("/t/b.svg")
	req.Scale = 2
	runCycle(t, o, req)
	if got := chrome.RenderCount(); got != 3 {
		t.Errorf("chrome renders after size change = %d, want 3", got)
	}
	if hits, misses := o.cache.Stats(); hits != 2 || misses != 6 {
		t.Errorf("cache Stats() = (%d, %d), want (2, 6)", hits, misses)
	}
}

func TestRunCycle_FailuresAreNotCached(t *testing.T) {
	chrome := mocks.NewRenderer(model.Chrome).WithFailure(backend.ReasonExitStatus)
	o := startOrchestrator(t, Options{}, mocks.NewRenderer(model.Reference), chrome)

	runCycle(t, o, request("/t/a.svg"))
	runCycle(t, o, request("/t/a.svg"))

	if got := chrome.RenderCount(); got != 2 {
		t.Errorf("chrome renders = %d, want 2", got)
	}
}

func TestRunCycle_BackendSubset(t *testing.T) {
	ref := mocks.NewRenderer(model.Reference)
	chrome := mocks.NewRenderer(model.Chrome)
	resvg := mocks.NewRenderer(model.Resvg)
	o := startOrchestrator(t, Options{}, ref, chrome, resvg)

	req := request("/t/a.svg")
	req.Backends = []model.Backend{model.Resvg, model.Ladybird}
	res := runCycle(t, o, req)

	if got := chrome.RenderCount(); got != 0 {
		t.Errorf("chrome renders = %d, want 0", got)
	}
	if got := ref.RenderCount(); got != 1 {
		t.Errorf("reference renders = %d, want 1", got)
	}
	if _, ok := res.Diffs[model.Resvg]; !ok {
		t.Error("resvg diff missing")
	}

	rErr, ok := backend.AsRenderError(res.Failures[model.Ladybird])
	if !ok {
		t.Fatalf("Failures[Ladybird] = %v, want a RenderError", res.Failures[model.Ladybird])
	}
	if rErr.Reason != backend.ReasonNotRegistered {
		t.Errorf("Reason = %v, want not registered", rErr.Reason)
	}
}

func TestRunCycle_RenderData(t *testing.T) {
	chrome := mocks.NewRenderer(model.Chrome)
	o := startOrchestrator(t, Options{}, mocks.NewRenderer(model.Reference), chrome)

	runCycle(t, o, Request{ImgPath: "/t/a.svg", BaseName: "t/a.svg", ViewSize: 100, Scale: 1.5, Suite: model.SuiteCustom})

	calls := chrome.Calls()
	if len(calls) != 1 {
		t.Fatalf("chrome calls = %d, want 1", len(calls))
	}
	want := backend.RenderData{
		Backend:   model.Chrome,
		ViewSize:  100,
		ImageSize: image.Pt(150, 150),
		ImgPath:   "/t/a.svg",
		BaseName:  "t/a.svg",
		Suite:     model.SuiteCustom,
	}
	if calls[0] != want {
		t.Errorf("RenderData = %+v, want %+v", calls[0], want)
	}
}

func TestRunCycle_WorkerPoolBound(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(_ context.Context, _ backend.RenderData) (image.Image, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return mocks.Solid(4, 4, color.White), nil
	}

	var renderers []backend.Renderer
	for _, b := range model.AllBackends {
		renderers = append(renderers, mocks.NewRenderer(b).WithRenderFunc(slow))
	}
	t.Setenv(ParallelEnv, "")
	o := startOrchestrator(t, Options{Workers: 2}, renderers...)

	res := runCycle(t, o, request("/t/a.svg"))

	if len(res.Images) != model.BackendsCount {
		t.Errorf("len(Images) = %d, want %d", len(res.Images), model.BackendsCount)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
	if o.Workers() != 2 {
		t.Errorf("Workers() = %d, want 2", o.Workers())
	}
}

func TestOrchestrator_InitialState(t *testing.T) {
	o := New(backend.NewRegistry(), Options{Workers: 1})
	if o.State() != StateIdle {
		t.Errorf("State() = %v, want idle", o.State())
	}
	if o.Generation() != 0 {
		t.Errorf("Generation() = %d, want 0", o.Generation())
	}
}

func TestOrchestrator_RunStopsOnCancel(t *testing.T) {
	o := New(backend.NewRegistry(), Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- o.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCycle_ContextCanceled(t *testing.T) {
	o := startOrchestrator(t, Options{},
		mocks.NewRenderer(model.Reference).WithGate(make(chan struct{})),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := o.RunCycle(ctx, request("/t/a.svg")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RunCycle() error = %v, want deadline exceeded", err)
	}
}

func TestCycleResult_ApplyIgnoresOtherGenerations(t *testing.T) {
	res := newCycleResult(2)
	if res.Apply(Event{Kind: EventFinished, Generation: 1}) {
		t.Error("Apply(gen 1 Finished) reported finished")
	}
	res.Apply(Event{Kind: EventImageReady, Generation: 1, Backend: model.Chrome})
	if len(res.Images) != 0 {
		t.Errorf("Images = %v, want none", res.Images)
	}
	if !res.Apply(Event{Kind: EventFinished, Generation: 2}) {
		t.Error("Apply(gen 2 Finished) did not report finished")
	}
}
