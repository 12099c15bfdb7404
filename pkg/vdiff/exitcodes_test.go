package vdiff_test

import (
	"testing"

	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/pkg/vdiff"
)

// TestExitCodeConsistency keeps the public constants in step with the CLI.
func TestExitCodeConsistency(t *testing.T) {
	tests := []struct {
		name     string
		public   int
		internal int
		want     int
	}{
		{"Success", vdiff.ExitSuccess, errors.ExitSuccess, 0},
		{"Failure", vdiff.ExitFailure, errors.ExitRuntimeError, 1},
		{"ConfigError", vdiff.ExitConfigError, errors.ExitConfigError, 2},
		{"EnvError", vdiff.ExitEnvError, errors.ExitEnvironmentError, 3},
		{"PersistenceError", vdiff.ExitPersistenceError, errors.ExitPersistenceError, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.public != tt.want {
				t.Errorf("vdiff.Exit%s = %d, want %d", tt.name, tt.public, tt.want)
			}
			if tt.public != tt.internal {
				t.Errorf("exit code mismatch: public = %d, internal = %d", tt.public, tt.internal)
			}
		})
	}
}
