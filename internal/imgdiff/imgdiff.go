// Package imgdiff compares two raster images pixel by pixel.
//
// # Size mismatch policy
//
// Renderers frequently produce an image of the wrong intrinsic size, so images of
// different dimensions are compared rather than rejected. Both images are anchored
// at their top-left corner (their Bounds().Min maps to (0,0)) on a canvas whose
// size is the union of the two: max(width) x max(height). Pixels covered by both
// images are compared with the configured tolerance. Every canvas pixel covered by
// only one image, or by neither (the corner region when one image is wider and the
// other taller), counts as a mismatch. The percentage is taken over the whole canvas.
package imgdiff

import (
	"fmt"
	"image"
	"image/color"

	"github.com/AndreyAkinshin/vdiff/internal/imgio"
)

// DefaultHighlight is the color painted over mismatching pixels.
var DefaultHighlight = color.NRGBA{R: 255, A: 255}

// Options configures a comparison.
type Options struct {
	// Tolerance is the largest per-channel absolute difference (0-255, non-premultiplied
	// RGBA) still treated as equal. Zero means exact comparison.
	Tolerance int

	// Highlight is the color used for mismatching pixels in the diff image.
	// A nil value uses DefaultHighlight.
	Highlight color.Color
}

// DefaultOptions returns exact comparison with the default highlight.
func DefaultOptions() Options {
	return Options{Tolerance: 0, Highlight: DefaultHighlight}
}

// Result is the outcome of comparing two images.
type Result struct {
	// Image visualizes the comparison: matching pixels are a faded grayscale copy of
	// the first image, mismatching pixels are painted with the highlight color.
	Image *image.NRGBA

	Mismatch int     // Number of mismatching canvas pixels
	Percent  float64 // Mismatch as a percentage of canvas pixels (0-100)
	Width    int     // Canvas width
	Height   int     // Canvas height
}

// Equal reports whether the images matched exactly within tolerance.
func (r *Result) Equal() bool {
	return r.Mismatch == 0
}

// Compare diffs a against b. a is treated as the primary image when rendering
// matching pixels in the diff image; the statistics are symmetric.
func Compare(a, b image.Image, opts Options) (*Result, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("compare: nil image")
	}
	if opts.Tolerance < 0 || opts.Tolerance > 255 {
		return nil, fmt.Errorf("compare: tolerance %d out of range [0-255]", opts.Tolerance)
	}
	highlight := DefaultHighlight
	if opts.Highlight != nil {
		highlight = color.NRGBAModel.Convert(opts.Highlight).(color.NRGBA)
	}

	na := imgio.AsNRGBA(a)
	nb := imgio.AsNRGBA(b)
	aw, ah := na.Bounds().Dx(), na.Bounds().Dy()
	bw, bh := nb.Bounds().Dx(), nb.Bounds().Dy()
	w, h := max(aw, bw), max(ah, bh)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	mismatch := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			inA := x < aw && y < ah
			inB := x < bw && y < bh
			if !inA || !inB {
				mismatch++
				out.SetNRGBA(x, y, highlight)
				continue
			}
			ca := na.NRGBAAt(x, y)
			cb := nb.NRGBAAt(x, y)
			if !CompareColors(ca, cb, opts.Tolerance) {
				mismatch++
				out.SetNRGBA(x, y, highlight)
				continue
			}
			out.SetNRGBA(x, y, fade(ca))
		}
	}

	res := &Result{
		Image:    out,
		Mismatch: mismatch,
		Width:    w,
		Height:   h,
	}
	if total := w * h; total > 0 {
		res.Percent = float64(mismatch) / float64(total) * 100
	}
	return res, nil
}

// CompareUint8 returns true if two channel values differ by at most tol.
func CompareUint8(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

// CompareColors returns true if every channel of a and b differs by at most tol.
// Fully transparent pixels compare equal regardless of their color channels,
// since renderers disagree on what lies under zero alpha.
func CompareColors(a, b color.NRGBA, tol int) bool {
	if a.A == 0 && b.A == 0 {
		return true
	}
	return CompareUint8(a.R, b.R, tol) &&
		CompareUint8(a.G, b.G, tol) &&
		CompareUint8(a.B, b.B, tol) &&
		CompareUint8(a.A, b.A, tol)
}

// fade turns a matching pixel into a light grayscale so highlighted pixels stand out.
func fade(c color.NRGBA) color.NRGBA {
	// Composite over white first, so transparent areas read as background.
	a := int(c.A)
	r := (int(c.R)*a + 255*(255-a)) / 255
	g := (int(c.G)*a + 255*(255-a)) / 255
	b := (int(c.B)*a + 255*(255-a)) / 255
	gray := (299*r + 587*g + 114*b) / 1000
	v := uint8(255 - (255-gray)/3)
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}
