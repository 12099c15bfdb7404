package project

import (
	"path/filepath"

	"github.com/AndreyAkinshin/vdiff/internal/config"
	"github.com/AndreyAkinshin/vdiff/internal/corpus"
	vdifferrors "github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Project represents a loaded vdiff project.
type Project struct {
	Root     string
	Config   *config.Config
	Warnings []string
}

// LoadProject finds and loads a project from the current directory.
func LoadProject() (*Project, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadProjectFrom(root)
}

// LoadProjectFrom loads a project from a specified root directory.
// The corpus directory must exist; the verdict file is checked only when the corpus is loaded.
func LoadProjectFrom(root string) (*Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	configPath := filepath.Join(root, ConfigDirName, ConfigFileName)

	cfg, warnings, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindConfig,
			Message: "failed to load configuration",
			Path:    configPath,
			Cause:   err,
		}
	}

	p := &Project{
		Root:     root,
		Config:   cfg,
		Warnings: warnings,
	}
	if err := validateDirectory(p.TestsPath(), "tests.directory"); err != nil {
		return nil, err
	}
	return p, nil
}

// ConfigPath returns the full path to the project configuration file.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Root, ConfigDirName, ConfigFileName)
}

// TestsPath returns the absolute corpus root.
func (p *Project) TestsPath() string {
	return p.resolve(p.Config.Tests.Directory)
}

// ResultsPath returns the absolute verdict file path.
func (p *Project) ResultsPath() string {
	return p.resolve(p.Config.Tests.Results)
}

// OutputDir returns the absolute directory for saved images.
func (p *Project) OutputDir() string {
	return p.resolve(p.Config.Render.OutputDir)
}

// Suite returns the configured suite, or override when it is set.
func (p *Project) Suite(override string) (model.Suite, error) {
	if override == "" {
		return p.Config.SuiteMode(), nil
	}
	s, ok := model.ParseSuite(override)
	if !ok {
		return 0, vdifferrors.Configf("invalid suite %q (valid: own, custom)", override)
	}
	return s, nil
}

// Settings returns the corpus locations for the given suite.
func (p *Project) Settings(suite model.Suite) corpus.Settings {
	return corpus.Settings{
		Suite:       suite,
		TestsPath:   p.TestsPath(),
		ResultsPath: p.ResultsPath(),
	}
}

// LoadTests loads the corpus for the given suite.
func (p *Project) LoadTests(suite model.Suite) (*corpus.Tests, error) {
	return corpus.Load(suite, p.ResultsPath(), p.TestsPath())
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, path)
}
