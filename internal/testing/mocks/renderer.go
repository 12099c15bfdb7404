// Package mocks provides shared test doubles for vdiff packages.
package mocks

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/backend"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// DefaultSize is the size of the image a mock renders unless configured otherwise.
const DefaultSize = 4

// Renderer implements backend.Renderer for testing.
// Use NewRenderer() to create instances with a fluent builder API.
type Renderer struct {
	backend model.Backend
	img     image.Image
	err     error
	delay   time.Duration
	gate    <-chan struct{}

	// RenderFunc is called by Render when set, after delay and gate.
	RenderFunc func(ctx context.Context, data backend.RenderData) (image.Image, error)

	// Call tracking (thread-safe)
	renderCount int32
	mu          sync.Mutex
	calls       []backend.RenderData
}

// NewRenderer creates a mock renderer producing a white DefaultSize square.
func NewRenderer(b model.Backend) *Renderer {
	return &Renderer{
		backend: b,
		img:     Solid(DefaultSize, DefaultSize, color.White),
	}
}

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = nc.R
		img.Pix[i+1] = nc.G
		img.Pix[i+2] = nc.B
		img.Pix[i+3] = nc.A
	}
	return img
}

// WithImage sets the image returned by Render.
func (m *Renderer) WithImage(img image.Image) *Renderer {
	m.img = img
	return m
}

// WithColor makes Render return a DefaultSize square of c.
func (m *Renderer) WithColor(c color.Color) *Renderer {
	m.img = Solid(DefaultSize, DefaultSize, c)
	return m
}

// WithError makes Render fail with err.
func (m *Renderer) WithError(err error) *Renderer {
	m.err = err
	return m
}

// WithFailure makes Render fail with a RenderError of the given reason.
func (m *Renderer) WithFailure(reason backend.Reason) *Renderer {
	m.err = &backend.RenderError{Backend: m.backend, Reason: reason}
	return m
}

// WithDelay makes Render wait before returning. Cancellation ends the wait early.
func (m *Renderer) WithDelay(d time.Duration) *Renderer {
	m.delay = d
	return m
}

// WithGate makes Render block until gate is closed or the context is done.
func (m *Renderer) WithGate(gate <-chan struct{}) *Renderer {
	m.gate = gate
	return m
}

// WithRenderFunc sets the function called by Render.
func (m *Renderer) WithRenderFunc(fn func(ctx context.Context, data backend.RenderData) (image.Image, error)) *Renderer {
	m.RenderFunc = fn
	return m
}

// backend.Renderer interface implementation

func (m *Renderer) Backend() model.Backend { return m.backend }

func (m *Renderer) Render(ctx context.Context, data backend.RenderData) (image.Image, error) {
	atomic.AddInt32(&m.renderCount, 1)
	m.mu.Lock()
	m.calls = append(m.calls, data)
	m.mu.Unlock()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &backend.RenderError{Backend: m.backend, Reason: backend.ReasonCanceled, Err: ctx.Err()}
		}
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, &backend.RenderError{Backend: m.backend, Reason: backend.ReasonCanceled, Err: ctx.Err()}
		}
	}

	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, data)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.img, nil
}

// Test inspection methods

// RenderCount returns the number of times Render was called.
func (m *Renderer) RenderCount() int32 {
	return atomic.LoadInt32(&m.renderCount)
}

// Calls returns a copy of every RenderData passed to Render.
func (m *Renderer) Calls() []backend.RenderData {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]backend.RenderData, len(m.calls))
	copy(result, m.calls)
	return result
}

// Reset clears call tracking state.
func (m *Renderer) Reset() {
	atomic.StoreInt32(&m.renderCount, 0)
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
