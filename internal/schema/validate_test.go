package schema

import "testing"

func TestValidateConfig_Valid(t *testing.T) {
	tests := map[string]string{
		"minimal": `{"tests": {}}`,
		"full": `{
			"$schema": "../schema/config.schema.json",
			"tests": {"directory": "svg", "results": "results.csv", "suite": "own", "reference_dir": "png"},
			"render": {"view_size": 200, "scale": 2, "timeout": "10s", "workers": 4, "output_dir": "out"},
			"diff": {"tolerance": 8, "pass_threshold": 0.5, "highlight": "#00ff00cc"},
			"backends": {
				"resvg": {"tool": "/usr/bin/resvg"},
				"chrome": {"enabled": false, "env": {"DISPLAY": ":0"}, "timeout": "1m"}
			}
		}`,
		"custom suite": `{"tests": {"suite": "custom", "reference_fallback": "resvg"}}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if err := ValidateConfig([]byte(data)); err != nil {
				t.Errorf("ValidateConfig() error = %v, want nil", err)
			}
		})
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty object":       `{}`,
		"not object":         `"string"`,
		"malformed":          `{"tests": `,
		"bad suite":          `{"tests": {"suite": "w3c"}}`,
		"zero view size":     `{"tests": {}, "render": {"view_size": 0}}`,
		"negative scale":     `{"tests": {}, "render": {"scale": -1}}`,
		"too many workers":   `{"tests": {}, "render": {"workers": 1000}}`,
		"tolerance too big":  `{"tests": {}, "diff": {"tolerance": 256}}`,
		"threshold too big":  `{"tests": {}, "diff": {"pass_threshold": 101}}`,
		"bad highlight":      `{"tests": {}, "diff": {"highlight": "red"}}`,
		"backend not object": `{"tests": {}, "backends": {"resvg": "resvg"}}`,
		"enabled not bool":   `{"tests": {}, "backends": {"resvg": {"enabled": "yes"}}}`,
		"env not strings":    `{"tests": {}, "backends": {"resvg": {"env": {"A": 1}}}}`,
		"bad backend name":   `{"tests": {}, "backends": {"res vg": {}}}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if err := ValidateConfig([]byte(data)); err == nil {
				t.Error("ValidateConfig() error = nil, want error")
			}
		})
	}
}
