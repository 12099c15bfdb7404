package backend

import (
	"path/filepath"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/config"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// FromConfig builds a registry from a validated configuration.
//
// Every enabled backend gets a ToolRenderer. Reference is always registered;
// its fallback is the renderer of tests.reference_fallback when that backend is enabled.
// Relative tool and reference paths are resolved against rootDir.
func FromConfig(cfg *config.Config, rootDir string) *Registry {
	r := NewRegistry()

	for _, b := range cfg.EnabledBackends() {
		bc := cfg.Backends[b.Key()]
		r.Register(NewToolRenderer(b, ToolConfig{
			Tool:    resolveTool(bc.Tool, rootDir),
			Command: bc.Command,
			Env:     bc.Env,
			Timeout: cfg.BackendTimeout(b.Key()),
			WorkDir: rootDir,
		}))
	}

	ref := &ReferenceRenderer{}
	if cfg.Tests.ReferenceDir != "" {
		ref.Dir = resolvePath(cfg.Tests.ReferenceDir, rootDir)
	}
	if fb, ok := model.ParseBackend(cfg.Tests.ReferenceFallback); ok {
		if rr, ok := r.Get(fb); ok {
			ref.Fallback = rr
		}
	}
	r.Register(ref)

	return r
}

// resolveTool makes a relative tool path absolute. Bare executable names are left for PATH lookup.
func resolveTool(tool, rootDir string) string {
	if tool == "" || !strings.ContainsRune(filepath.ToSlash(tool), '/') {
		return tool
	}
	return resolvePath(tool, rootDir)
}

func resolvePath(p, rootDir string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, filepath.FromSlash(p))
}
