// Package config provides configuration loading and validation for .vdiff/config.json.
package config

import (
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Config represents the complete config.json configuration.
type Config struct {
	Tests    TestsConfig              `json:"tests"`
	Render   *RenderConfig            `json:"render,omitempty"`
	Diff     *DiffConfig              `json:"diff,omitempty"`
	Backends map[string]BackendConfig `json:"backends,omitempty"`
}

// TestsConfig locates the test corpus and its verdict file.
// Relative paths are resolved against the project root.
type TestsConfig struct {
	Directory         string `json:"directory,omitempty"`
	Results           string `json:"results,omitempty"`
	Suite             string `json:"suite,omitempty"`              // "own" or "custom"
	ReferenceDir      string `json:"reference_dir,omitempty"`      // Reference PNG tree; empty means next to each SVG
	ReferenceFallback string `json:"reference_fallback,omitempty"` // Backend used as Reference for the custom suite
}

// RenderConfig controls render cycles.
type RenderConfig struct {
	ViewSize  int     `json:"view_size,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Timeout   string  `json:"timeout,omitempty"` // Go duration, e.g. "30s"
	Workers   int     `json:"workers,omitempty"` // 0 means VDIFF_PARALLEL or CPU count
	OutputDir string  `json:"output_dir,omitempty"`
}

// DiffConfig controls image comparison and automatic verdicts.
type DiffConfig struct {
	Tolerance     int     `json:"tolerance,omitempty"`      // Per-channel tolerance, 0-255
	PassThreshold float64 `json:"pass_threshold,omitempty"` // Max mismatch percent still recorded as passed
	Highlight     string  `json:"highlight,omitempty"`      // "#rrggbb" or "#rrggbbaa"
}

// BackendConfig configures one external renderer.
// A backend is registered only if it appears in the backends map and is not disabled.
type BackendConfig struct {
	Enabled *bool             `json:"enabled,omitempty"`
	Tool    string            `json:"tool,omitempty"`    // Tool executable or helper path, substituted as ${tool}
	Command string            `json:"command,omitempty"` // Command template; see backend.ToolRenderer
	Env     map[string]string `json:"env,omitempty"`
	Timeout string            `json:"timeout,omitempty"` // Overrides render.timeout
}

// IsEnabled reports whether the backend is turned on. Missing means enabled.
func (b BackendConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// SuiteMode returns the parsed suite, defaulting to own.
func (c *Config) SuiteMode() model.Suite {
	s, _ := model.ParseSuite(c.Tests.Suite)
	return s
}

// RenderTimeout returns the default per-render timeout.
func (c *Config) RenderTimeout() time.Duration {
	if c.Render == nil {
		return DefaultRenderTimeout
	}
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		return DefaultRenderTimeout
	}
	return d
}

// BackendTimeout returns the timeout for a backend, falling back to RenderTimeout.
func (c *Config) BackendTimeout(key string) time.Duration {
	if bc, ok := c.Backends[key]; ok && bc.Timeout != "" {
		if d, err := time.ParseDuration(bc.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return c.RenderTimeout()
}

// EnabledBackends returns the enabled external backends in fixed column order.
func (c *Config) EnabledBackends() []model.Backend {
	var out []model.Backend
	for _, b := range model.VerdictBackends {
		if bc, ok := c.Backends[b.Key()]; ok && bc.IsEnabled() {
			out = append(out, b)
		}
	}
	return out
}
