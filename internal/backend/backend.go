// Package backend provides the Renderer interface and registry for SVG rendering backends.
package backend

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// RenderData describes a single render request for one backend.
type RenderData struct {
	Backend   model.Backend
	ViewSize  int         // Logical viewport size in CSS pixels
	ImageSize image.Point // Target raster size in device pixels
	ImgPath   string      // Absolute path to the SVG file
	BaseName  string      // Corpus-relative name, used to locate reference PNGs
	ToolPath  string      // Overrides the configured ${tool} when set
	Suite     model.Suite
}

// ImageSizeFor returns the square target raster size for a view size and scale factor.
func ImageSizeFor(viewSize int, scale float64) image.Point {
	side := int(math.Round(float64(viewSize) * scale))
	if side < 1 {
		side = 1
	}
	return image.Pt(side, side)
}

// Renderer turns an SVG file into a raster image.
// Implementations must be safe for concurrent use; they hold no per-render state.
type Renderer interface {
	Backend() model.Backend
	Render(ctx context.Context, data RenderData) (image.Image, error)
}

// ToolLocator is implemented by renderers backed by an external executable.
type ToolLocator interface {
	// Tool returns the executable the renderer invokes.
	Tool() string
	// Available reports whether the executable can be found.
	Available() bool
}

// Registry maps backends to renderers.
type Registry struct {
	renderers map[model.Backend]Renderer
}

// NewRegistry creates a registry holding the given renderers.
// A later renderer for the same backend replaces an earlier one.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[model.Backend]Renderer, len(renderers))}
	for _, rr := range renderers {
		r.Register(rr)
	}
	return r
}

// Register adds or replaces the renderer for its backend.
func (r *Registry) Register(rr Renderer) {
	r.renderers[rr.Backend()] = rr
}

// Get retrieves the renderer for a backend.
func (r *Registry) Get(b model.Backend) (Renderer, bool) {
	rr, ok := r.renderers[b]
	return rr, ok
}

// Backends returns the registered backends in fixed model order.
func (r *Registry) Backends() []model.Backend {
	out := make([]model.Backend, 0, len(r.renderers))
	for b := range r.renderers {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered renderers.
func (r *Registry) Len() int {
	return len(r.renderers)
}
