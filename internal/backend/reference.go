package backend

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/AndreyAkinshin/vdiff/internal/imgio"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// ReferenceRenderer provides the Reference image every other backend is diffed against.
//
// For the own suite it loads a pre-rendered PNG: next to the SVG with a .png extension,
// or under Dir using the test's base name. Custom corpora ship no PNGs, so the custom
// suite delegates to Fallback.
type ReferenceRenderer struct {
	Dir      string
	Fallback Renderer
}

func (r *ReferenceRenderer) Backend() model.Backend { return model.Reference }

// Render loads or produces the reference image, scaled to fit data.ImageSize.
func (r *ReferenceRenderer) Render(ctx context.Context, data RenderData) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Backend: model.Reference, Reason: ReasonCanceled, Err: err}
	}

	if data.Suite == model.SuiteCustom {
		return r.renderFallback(ctx, data)
	}

	pngPath := r.PNGPath(data)
	img, _, err := imgio.Open(pngPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &RenderError{Backend: model.Reference, Reason: ReasonNoReference, Detail: pngPath}
		}
		return nil, &RenderError{Backend: model.Reference, Reason: ReasonBadOutput, Detail: pngPath, Err: err}
	}
	return scaleToFit(img, data.ImageSize), nil
}

// PNGPath returns where the own-suite reference image for data is expected.
func (r *ReferenceRenderer) PNGPath(data RenderData) string {
	if r.Dir != "" && data.BaseName != "" {
		rel := strings.TrimSuffix(data.BaseName, path.Ext(data.BaseName)) + ".png"
		return filepath.Join(r.Dir, filepath.FromSlash(rel))
	}
	return strings.TrimSuffix(data.ImgPath, filepath.Ext(data.ImgPath)) + ".png"
}

func (r *ReferenceRenderer) renderFallback(ctx context.Context, data RenderData) (image.Image, error) {
	if r.Fallback == nil {
		return nil, &RenderError{Backend: model.Reference, Reason: ReasonNoReference, Detail: "no fallback backend for the custom suite"}
	}
	fb := data
	fb.Backend = r.Fallback.Backend()
	img, err := r.Fallback.Render(ctx, fb)
	if err != nil {
		reason := ReasonExitStatus
		if rErr, ok := AsRenderError(err); ok {
			reason = rErr.Reason
		}
		return nil, &RenderError{Backend: model.Reference, Reason: reason, Detail: "fallback " + fb.Backend.String(), Err: err}
	}
	return img, nil
}

// scaleToFit resizes img to fit within size, keeping its aspect ratio.
// Images already matching on one axis and fitting on the other are returned unchanged.
func scaleToFit(img image.Image, size image.Point) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size.X <= 0 || size.Y <= 0 || w == 0 || h == 0 {
		return img
	}
	if (w == size.X && h <= size.Y) || (h == size.Y && w <= size.X) {
		return img
	}

	sx := float64(size.X) / float64(w)
	sy := float64(size.Y) / float64(h)
	s := min(sx, sy)
	nw := max(1, int(float64(w)*s+0.5))
	nh := max(1, int(float64(h)*s+0.5))

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
