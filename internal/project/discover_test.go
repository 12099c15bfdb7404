package project

import (
	"errors"
	"testing"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

func fakeLookPath(available ...string) LookPathFunc {
	set := make(map[string]bool, len(available))
	for _, a := range available {
		set[a] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
}

func TestDetectBackends(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		want      map[model.Backend]string
	}{
		{"none", nil, map[model.Backend]string{}},
		{
			"first chrome executable wins",
			[]string{"google-chrome", "chromium-browser"},
			map[model.Backend]string{model.Chrome: "chromium-browser"},
		},
		{
			"several backends",
			[]string{"resvg", "rsvg-convert", "inkscape"},
			map[model.Backend]string{model.Resvg: "resvg", model.Librsvg: "rsvg-convert", model.Inkscape: "inkscape"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectBackends(fakeLookPath(tt.available...))
			if len(got) != len(tt.want) {
				t.Fatalf("DetectBackends() = %v, want %v", got, tt.want)
			}
			for b, exe := range tt.want {
				if got[b] != exe {
					t.Errorf("DetectBackends()[%v] = %q, want %q", b, got[b], exe)
				}
			}
		})
	}
}
