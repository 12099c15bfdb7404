package integration

import (
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/project"
)

func TestProjectNotFoundError(t *testing.T) {
	t.Parallel()
	_, err := project.LoadProjectFrom("/nonexistent/path")
	if err == nil {
		t.Fatal("expected error when loading from nonexistent path")
	}
}

func TestMalformedVerdictFile(t *testing.T) {
	t.Parallel()
	proj, err := project.LoadProjectFrom(filepath.Join(fixturesDir(), "invalid", "bad-row"))
	if err != nil {
		t.Fatalf("failed to load project: %v", err)
	}

	_, err = proj.LoadTests(model.SuiteOwn)
	if !errors.IsKind(err, errors.KindCorpusLoad) {
		t.Fatalf("LoadTests() error = %v, want corpus load error", err)
	}
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", got, errors.ExitConfigError)
	}
	if !strings.Contains(err.Error(), "column resvg") {
		t.Errorf("error should name the column: %v", err)
	}

	var ve *errors.VdiffError
	if !stderrors.As(err, &ve) || ve.Row != 3 {
		t.Errorf("error row = %v, want 3", err)
	}
}

func TestMalformedVerdictFileCustomSuiteStillLoads(t *testing.T) {
	t.Parallel()
	proj, err := project.LoadProjectFrom(filepath.Join(fixturesDir(), "invalid", "bad-row"))
	if err != nil {
		t.Fatalf("failed to load project: %v", err)
	}
	tests, err := proj.LoadTests(model.SuiteCustom)
	if err != nil {
		t.Fatalf("custom suite ignores the verdict file, got %v", err)
	}
	if tests.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tests.Len())
	}
}

func TestUnknownBackendError(t *testing.T) {
	t.Parallel()
	_, err := project.LoadProjectFrom(filepath.Join(fixturesDir(), "invalid", "unknown-backend"))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if got := errors.GetExitCode(err); got != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", got, errors.ExitConfigError)
	}
	if !strings.Contains(err.Error(), "backends.netscape") {
		t.Errorf("error should name the field: %v", err)
	}
}
