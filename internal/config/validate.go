package config

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Validation patterns.
var (
	// Highlight color: #rrggbb or #rrggbbaa.
	highlightPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

	// Placeholder reference in a command template.
	placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// knownPlaceholders are the variables a command template may reference.
var knownPlaceholders = map[string]bool{
	"tool":      true,
	"input":     true,
	"output":    true,
	"width":     true,
	"height":    true,
	"view_size": true,
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for errors and returns warnings for non-fatal issues.
// The configuration must already have defaults applied.
func Validate(cfg *Config) (warnings []string, err error) {
	if err := validateTests(cfg); err != nil {
		return nil, err
	}
	if err := validateRender(cfg); err != nil {
		return nil, err
	}
	if err := validateDiff(cfg); err != nil {
		return nil, err
	}
	if err := validateBackends(cfg); err != nil {
		return nil, err
	}

	if cfg.SuiteMode() == model.SuiteCustom {
		fb, _ := model.ParseBackend(cfg.Tests.ReferenceFallback)
		if bc, ok := cfg.Backends[fb.Key()]; !ok || !bc.IsEnabled() {
			warnings = append(warnings, fmt.Sprintf(
				"tests.reference_fallback %q is not an enabled backend; custom suite renders will have no reference",
				cfg.Tests.ReferenceFallback))
		}
	}

	if len(cfg.EnabledBackends()) == 0 {
		warnings = append(warnings, "no backends enabled; add entries under \"backends\"")
	}

	return warnings, nil
}

func validateTests(cfg *Config) error {
	if _, ok := model.ParseSuite(cfg.Tests.Suite); !ok {
		return &ValidationError{
			Field:   "tests.suite",
			Message: fmt.Sprintf("must be one of: %s", strings.Join(model.ValidSuites(), ", ")),
		}
	}
	fb, ok := model.ParseBackend(cfg.Tests.ReferenceFallback)
	if !ok || fb == model.Reference {
		return &ValidationError{
			Field:   "tests.reference_fallback",
			Message: fmt.Sprintf("unknown backend %q", cfg.Tests.ReferenceFallback),
		}
	}
	return nil
}

func validateRender(cfg *Config) error {
	r := cfg.Render
	if r.ViewSize <= 0 {
		return &ValidationError{Field: "render.view_size", Message: "must be positive"}
	}
	if r.Scale <= 0 || math.IsInf(r.Scale, 0) || math.IsNaN(r.Scale) {
		return &ValidationError{Field: "render.scale", Message: "must be a positive number"}
	}
	if err := validateDuration("render.timeout", r.Timeout); err != nil {
		return err
	}
	if r.Workers < 0 || r.Workers > maxWorkers {
		return &ValidationError{Field: "render.workers", Message: fmt.Sprintf("must be in range [0-%d]", maxWorkers)}
	}
	return nil
}

// maxWorkers mirrors the render package's worker cap.
const maxWorkers = 256

func validateDiff(cfg *Config) error {
	d := cfg.Diff
	if d.Tolerance < 0 || d.Tolerance > 255 {
		return &ValidationError{Field: "diff.tolerance", Message: "must be in range [0-255]"}
	}
	if d.PassThreshold < 0 || d.PassThreshold > 100 {
		return &ValidationError{Field: "diff.pass_threshold", Message: "must be a percentage in range [0-100]"}
	}
	if !highlightPattern.MatchString(d.Highlight) {
		return &ValidationError{Field: "diff.highlight", Message: "must be #rrggbb or #rrggbbaa"}
	}
	return nil
}

func validateBackends(cfg *Config) error {
	keys := make([]string, 0, len(cfg.Backends))
	for key := range cfg.Backends {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		bc := cfg.Backends[key]
		field := "backends." + key
		b, ok := model.ParseBackend(key)
		if !ok {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown backend; valid backends: %s", strings.Join(model.BackendKeys()[1:], ", ")),
			}
		}
		if b == model.Reference {
			return &ValidationError{Field: field, Message: "reference is built in and cannot be configured as a tool"}
		}
		if !strings.Contains(bc.Command, "${input}") {
			return &ValidationError{Field: field + ".command", Message: "must reference ${input}"}
		}
		for _, m := range placeholderPattern.FindAllStringSubmatch(strings.ReplaceAll(bc.Command, "$${", ""), -1) {
			if !knownPlaceholders[m[1]] {
				return &ValidationError{
					Field:   field + ".command",
					Message: fmt.Sprintf("unknown placeholder ${%s}", m[1]),
				}
			}
		}
		if bc.Timeout != "" {
			if err := validateDuration(field+".timeout", bc.Timeout); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return &ValidationError{Field: field, Message: fmt.Sprintf("invalid duration %q", value)}
	}
	if d <= 0 {
		return &ValidationError{Field: field, Message: "must be positive"}
	}
	return nil
}

// ParseHighlight converts a validated "#rrggbb[aa]" string to its components.
func ParseHighlight(s string) (r, g, b, a uint8, err error) {
	if !highlightPattern.MatchString(s) {
		return 0, 0, 0, 0, fmt.Errorf("invalid highlight color %q", s)
	}
	var v [4]uint8
	v[3] = 0xff
	hex := s[1:]
	for i := 0; i < len(hex)/2; i++ {
		n, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid highlight color %q: %w", s, err)
		}
		v[i] = uint8(n)
	}
	return v[0], v[1], v[2], v[3], nil
}
