package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Backends = map[string]BackendConfig{"resvg": {}}
	applyDefaults(cfg)
	return cfg
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad suite", func(c *Config) { c.Tests.Suite = "w3c" }, "tests.suite"},
		{"bad fallback", func(c *Config) { c.Tests.ReferenceFallback = "netscape" }, "tests.reference_fallback"},
		{"reference fallback", func(c *Config) { c.Tests.ReferenceFallback = "reference" }, "tests.reference_fallback"},
		{"zero view size", func(c *Config) { c.Render.ViewSize = 0 }, "render.view_size"},
		{"negative scale", func(c *Config) { c.Render.Scale = -2 }, "render.scale"},
		{"bad timeout", func(c *Config) { c.Render.Timeout = "soon" }, "render.timeout"},
		{"zero timeout", func(c *Config) { c.Render.Timeout = "0s" }, "render.timeout"},
		{"too many workers", func(c *Config) { c.Render.Workers = 257 }, "render.workers"},
		{"negative tolerance", func(c *Config) { c.Diff.Tolerance = -1 }, "diff.tolerance"},
		{"threshold over 100", func(c *Config) { c.Diff.PassThreshold = 100.5 }, "diff.pass_threshold"},
		{"bad highlight", func(c *Config) { c.Diff.Highlight = "#fff" }, "diff.highlight"},
		{"unknown backend", func(c *Config) { c.Backends["netscape"] = BackendConfig{Command: "${input}"} }, "backends.netscape"},
		{"reference backend", func(c *Config) { c.Backends["reference"] = BackendConfig{Command: "${input}"} }, "backends.reference"},
		{"command without input", func(c *Config) {
			c.Backends["resvg"] = BackendConfig{Command: "resvg ${output}"}
		}, "backends.resvg.command"},
		{"unknown placeholder", func(c *Config) {
			c.Backends["resvg"] = BackendConfig{Command: "resvg ${input} ${dpi}"}
		}, "backends.resvg.command"},
		{"bad backend timeout", func(c *Config) {
			c.Backends["resvg"] = BackendConfig{Command: "resvg ${input}", Timeout: "x"}
		}, "backends.resvg.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			_, err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			vErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestValidate_EscapedPlaceholderAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Backends["resvg"] = BackendConfig{Command: "sh -c 'resvg ${input} $${HOME}/out.png'"}

	if _, err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_CustomSuiteFallbackWarning(t *testing.T) {
	cfg := validConfig()
	cfg.Tests.Suite = "custom"

	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "reference_fallback") {
		t.Errorf("warnings = %v, want one reference_fallback warning", warnings)
	}

	cfg.Tests.ReferenceFallback = "resvg"
	warnings, err = Validate(cfg)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "render.scale", Message: "must be a positive number"}
	want := "render.scale: must be a positive number"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestParseHighlight(t *testing.T) {
	tests := []struct {
		in         string
		r, g, b, a uint8
		wantErr    bool
	}{
		{"#ff0000", 0xff, 0, 0, 0xff, false},
		{"#00FF0080", 0, 0xff, 0, 0x80, false},
		{"#123456", 0x12, 0x34, 0x56, 0xff, false},
		{"red", 0, 0, 0, 0, true},
		{"#12345", 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, g, b, a, err := ParseHighlight(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHighlight(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if r != tt.r || g != tt.g || b != tt.b || a != tt.a {
				t.Errorf("ParseHighlight(%q) = %d,%d,%d,%d, want %d,%d,%d,%d", tt.in, r, g, b, a, tt.r, tt.g, tt.b, tt.a)
			}
		})
	}
}
