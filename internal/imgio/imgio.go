// Package imgio decodes and encodes raster images produced by rendering backends.
//
// Backends emit whatever their tool writes (PNG from most, BMP or TIFF from some
// converters, WebP from browser screenshot helpers). Output bytes are sniffed by
// content rather than trusted by extension, since several tools ignore the
// requested output name's suffix.
package imgio

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format is a supported raster encoding.
type Format int

const (
	None Format = iota
	PNG
	JPEG
	GIF
	TIFF
	BMP
	WebP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	case WebP:
		return "webp"
	default:
		return "none"
	}
}

// ExtToFormat returns a Format based on a filename extension,
// which can start with a . or not.
func ExtToFormat(ext string) (Format, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	case "webp":
		return WebP, nil
	case "":
		return None, fmt.Errorf("empty image extension")
	}
	return None, fmt.Errorf("image extension %q not recognized", ext)
}

// Sniff detects the raster format of data by its magic bytes.
func Sniff(data []byte) (Format, error) {
	if len(data) == 0 {
		return None, fmt.Errorf("empty image data")
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return None, fmt.Errorf("detect image type: %w", err)
	}
	if kind == filetype.Unknown {
		return None, fmt.Errorf("unrecognized image data (%d bytes)", len(data))
	}
	if !filetype.IsImage(data) {
		return None, fmt.Errorf("output is %s, not an image", kind.MIME.Value)
	}
	return ExtToFormat(kind.Extension)
}

// Decode sniffs and decodes an in-memory image.
func Decode(data []byte) (image.Image, Format, error) {
	f, err := Sniff(data)
	if err != nil {
		return nil, None, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, f, fmt.Errorf("decode %s: %w", f, err)
	}
	return img, f, nil
}

// Open reads and decodes the image at path.
func Open(path string) (image.Image, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, None, err
	}
	img, f, err := Decode(data)
	if err != nil {
		return nil, f, fmt.Errorf("%s: %w", path, err)
	}
	return img, f, nil
}

// Save writes img to path with the format inferred from the extension.
func Save(img image.Image, path string) error {
	f, err := ExtToFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := Write(img, bw, f); err != nil {
		_ = file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Write encodes img in format f.
// WebP has no encoder in x/image; it is decode-only.
func Write(img image.Image, w io.Writer, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		return gif.Encode(w, img, nil)
	case TIFF:
		return tiff.Encode(w, img, nil)
	case BMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("cannot encode image format %s", f)
	}
}

// AsNRGBA returns img as *image.NRGBA anchored at (0,0),
// converting or re-anchoring when needed.
func AsNRGBA(img image.Image) *image.NRGBA {
	if img == nil {
		return nil
	}
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
