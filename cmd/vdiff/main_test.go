package main

import (
	"os/exec"
	"strings"
	"testing"
)

// TestMain_BuildVerification verifies the binary builds.
func TestMain_BuildVerification(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("go", "build", "-o", "/dev/null", ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build main package: %v\n%s", err, out)
	}
}

func TestMain_HelpFlag(t *testing.T) {
	t.Parallel()

	out, err := exec.Command("go", "run", ".", "--help").CombinedOutput()
	if err != nil {
		t.Fatalf("--help failed: %v\noutput: %s", err, out)
	}
	if !strings.Contains(string(out), "render-all") {
		t.Errorf("--help output does not list commands:\n%s", out)
	}
}

func TestMain_UnknownCommandExitCode(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("go", "run", ".", "no-such-command")
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected exit error, got %v", err)
	}
	// go run reports the child's exit status as its own.
	if exitErr.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.ExitCode())
	}
}
