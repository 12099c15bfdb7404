package project

import (
	"os"
	"os/exec"

	vdifferrors "github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// ToolMarker maps an executable name to the backend it renders for.
type ToolMarker struct {
	Executable string
	Backend    model.Backend
}

// toolMarkers defines the detection order. First match per backend wins.
var toolMarkers = []ToolMarker{
	{"chromium", model.Chrome},
	{"chromium-browser", model.Chrome},
	{"google-chrome", model.Chrome},
	{"firefox", model.Firefox},
	{"resvg", model.Resvg},
	{"batik-rasterizer", model.Batik},
	{"inkscape", model.Inkscape},
	{"rsvg-convert", model.Librsvg},
	{"ladybird", model.Ladybird},
}

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DetectBackends returns the backends with a renderer executable on PATH,
// mapped to the executable that was found.
func DetectBackends(lookPath LookPathFunc) map[model.Backend]string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	found := make(map[model.Backend]string)
	for _, m := range toolMarkers {
		if _, ok := found[m.Backend]; ok {
			continue
		}
		if _, err := lookPath(m.Executable); err == nil {
			found[m.Backend] = m.Executable
		}
	}
	return found
}

// validateDirectory checks that a configured directory exists.
func validateDirectory(dir, field string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindEnvironment,
			Message: field + ": directory does not exist",
			Path:    dir,
		}
	}
	if err != nil {
		return &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindEnvironment,
			Message: field + ": cannot access directory",
			Path:    dir,
			Cause:   err,
		}
	}
	if !info.IsDir() {
		return &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindEnvironment,
			Message: field + ": not a directory",
			Path:    dir,
		}
	}
	return nil
}
