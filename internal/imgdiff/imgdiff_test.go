package imgdiff

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"
)

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
)

func mustCompare(t *testing.T, a, b image.Image, opts Options) *Result {
	t.Helper()
	res, err := Compare(a, b, opts)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	return res
}

func TestCompare_SelfIsZero(t *testing.T) {
	img := filled(10, 7, color.NRGBA{R: 12, G: 200, B: 99, A: 255})
	img.SetNRGBA(3, 3, black)

	res := mustCompare(t, img, img, DefaultOptions())
	if res.Mismatch != 0 || res.Percent != 0 || !res.Equal() {
		t.Errorf("self diff = %d (%.2f%%), want 0", res.Mismatch, res.Percent)
	}
	if res.Width != 10 || res.Height != 7 {
		t.Errorf("canvas = %dx%d, want 10x7", res.Width, res.Height)
	}
}

func TestCompare_CountsDifferingPixels(t *testing.T) {
	a := filled(4, 5, white)
	b := filled(4, 5, white)
	b.SetNRGBA(0, 0, black)
	b.SetNRGBA(3, 4, black)

	res := mustCompare(t, a, b, DefaultOptions())
	if res.Mismatch != 2 {
		t.Errorf("Mismatch = %d, want 2", res.Mismatch)
	}
	if math.Abs(res.Percent-10) > 1e-9 {
		t.Errorf("Percent = %v, want 10", res.Percent)
	}
	for _, p := range []image.Point{{0, 0}, {3, 4}} {
		if got := res.Image.NRGBAAt(p.X, p.Y); got != DefaultHighlight {
			t.Errorf("pixel %v = %v, want highlight", p, got)
		}
	}
	if got := res.Image.NRGBAAt(1, 1); got == DefaultHighlight {
		t.Error("matching pixel painted with the highlight")
	}
}

func TestCompare_Tolerance(t *testing.T) {
	a := filled(2, 2, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	b := filled(2, 2, color.NRGBA{R: 104, G: 97, B: 100, A: 255})

	tests := []struct {
		tolerance int
		want      int
	}{
		{0, 4},
		{3, 4},
		{4, 0},
	}
	for _, tt := range tests {
		res := mustCompare(t, a, b, Options{Tolerance: tt.tolerance})
		if res.Mismatch != tt.want {
			t.Errorf("tolerance %d: Mismatch = %d, want %d", tt.tolerance, res.Mismatch, tt.want)
		}
	}
}

func TestCompare_SizeMismatch_UnionCanvas(t *testing.T) {
	// 4x2 vs 2x3: canvas 4x3 = 12 pixels. Overlap 2x2 matches.
	// a-only: 2x2 block at x=2..3,y=0..1 = 4. b-only: 2x1 at y=2,x=0..1 = 2.
	// Neither: x=2..3,y=2 = 2. Total mismatch = 8.
	a := filled(4, 2, white)
	b := filled(2, 3, white)

	res := mustCompare(t, a, b, DefaultOptions())
	if res.Width != 4 || res.Height != 3 {
		t.Errorf("canvas = %dx%d, want 4x3", res.Width, res.Height)
	}
	if res.Mismatch != 8 {
		t.Errorf("Mismatch = %d, want 8", res.Mismatch)
	}
	if want := 8.0 / 12.0 * 100; math.Abs(res.Percent-want) > 1e-9 {
		t.Errorf("Percent = %v, want %v", res.Percent, want)
	}

	if res.Image.NRGBAAt(1, 1) == DefaultHighlight {
		t.Error("overlap pixel should match")
	}
	for name, p := range map[string]image.Point{
		"a-only":           {3, 0},
		"b-only":           {0, 2},
		"uncovered corner": {3, 2},
	} {
		if got := res.Image.NRGBAAt(p.X, p.Y); got != DefaultHighlight {
			t.Errorf("%s pixel %v = %v, want highlight", name, p, got)
		}
	}
}

func TestCompare_SizeMismatch_Symmetric(t *testing.T) {
	a := filled(6, 3, white)
	b := filled(3, 6, black)

	ab := mustCompare(t, a, b, DefaultOptions())
	ba := mustCompare(t, b, a, DefaultOptions())
	if ab.Mismatch != ba.Mismatch || ab.Percent != ba.Percent {
		t.Errorf("Compare(a, b) = %d (%v), Compare(b, a) = %d (%v)", ab.Mismatch, ab.Percent, ba.Mismatch, ba.Percent)
	}
	if ab.Mismatch != 36 {
		t.Errorf("Mismatch = %d, want 36", ab.Mismatch)
	}
}

func TestCompare_SizeMismatch_Deterministic(t *testing.T) {
	a := filled(5, 5, white)
	b := filled(3, 7, white)
	b.SetNRGBA(1, 1, black)

	first := mustCompare(t, a, b, DefaultOptions())
	for i := 0; i < 5; i++ {
		again := mustCompare(t, a, b, DefaultOptions())
		if again.Mismatch != first.Mismatch || again.Percent != first.Percent {
			t.Fatalf("run %d: %d (%v), first %d (%v)", i, again.Mismatch, again.Percent, first.Mismatch, first.Percent)
		}
		if !bytes.Equal(again.Image.Pix, first.Image.Pix) {
			t.Fatalf("run %d: diff image differs", i)
		}
	}
}

func TestCompare_OffsetBoundsAreAnchored(t *testing.T) {
	a := filled(3, 3, white)
	b := image.NewNRGBA(image.Rect(50, 50, 53, 53))
	for y := 50; y < 53; y++ {
		for x := 50; x < 53; x++ {
			b.SetNRGBA(x, y, white)
		}
	}

	if res := mustCompare(t, a, b, DefaultOptions()); res.Mismatch != 0 {
		t.Errorf("Mismatch = %d, want 0", res.Mismatch)
	}
}

func TestCompare_TransparentPixelsMatch(t *testing.T) {
	a := filled(2, 1, color.NRGBA{R: 255, A: 0})
	b := filled(2, 1, color.NRGBA{B: 255, A: 0})

	if res := mustCompare(t, a, b, DefaultOptions()); res.Mismatch != 0 {
		t.Errorf("Mismatch = %d, want 0", res.Mismatch)
	}
}

func TestCompare_EmptyImages(t *testing.T) {
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	res := mustCompare(t, empty, empty, DefaultOptions())
	if res.Mismatch != 0 || res.Percent != 0 {
		t.Errorf("empty diff = %d (%v), want 0", res.Mismatch, res.Percent)
	}
}

func TestCompare_Errors(t *testing.T) {
	img := filled(1, 1, white)

	tests := []struct {
		name string
		a, b image.Image
		opts Options
	}{
		{"nil first", nil, img, DefaultOptions()},
		{"nil second", img, nil, DefaultOptions()},
		{"tolerance too large", img, img, Options{Tolerance: 256}},
		{"negative tolerance", img, img, Options{Tolerance: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compare(tt.a, tt.b, tt.opts); err == nil {
				t.Error("Compare() expected error")
			}
		})
	}
}

func TestCompare_CustomHighlight(t *testing.T) {
	green := color.NRGBA{G: 255, A: 255}
	res := mustCompare(t, filled(1, 1, white), filled(1, 1, black), Options{Highlight: green})
	if got := res.Image.NRGBAAt(0, 0); got != green {
		t.Errorf("pixel = %v, want %v", got, green)
	}
}

func TestCompareUint8(t *testing.T) {
	tests := []struct {
		a, b uint8
		tol  int
		want bool
	}{
		{10, 10, 0, true},
		{10, 11, 0, false},
		{10, 12, 2, true},
		{12, 10, 2, true},
		{0, 255, 254, false},
		{0, 255, 255, true},
	}
	for _, tt := range tests {
		if got := CompareUint8(tt.a, tt.b, tt.tol); got != tt.want {
			t.Errorf("CompareUint8(%d, %d, %d) = %v, want %v", tt.a, tt.b, tt.tol, got, tt.want)
		}
	}
}
