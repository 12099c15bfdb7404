// Package integration contains end-to-end tests for vdiff against fixture projects.
package integration

import (
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/AndreyAkinshin/vdiff/internal/imgio"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

// copyFixture copies a fixture project into a temporary directory so tests can modify it.
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	src := filepath.Join(fixturesDir(), filepath.FromSlash(name))
	dst := t.TempDir()

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("failed to copy fixture %s: %v", name, err)
	}
	return dst
}

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// writePNG writes an 8x8 image whose left half is left and right half is right.
func writePNG(t *testing.T, path string, left, right color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := left
			if x >= 4 {
				c = right
			}
			img.SetNRGBA(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imgio.Save(img, path); err != nil {
		t.Fatal(err)
	}
}

// prepareOwnProject copies the own-suite fixture and adds its images:
// references for the basic tests, and the outputs the scripted backends copy.
func prepareOwnProject(t *testing.T) string {
	t.Helper()
	root := copyFixture(t, "own")
	writePNG(t, filepath.Join(root, "tests", "basic", "rect.png"), red, red)
	writePNG(t, filepath.Join(root, "tests", "basic", "circle.png"), red, red)
	writePNG(t, filepath.Join(root, "tools", "same.png"), red, red)
	writePNG(t, filepath.Join(root, "tools", "half.png"), red, blue)
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
