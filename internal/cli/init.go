package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/config"
	"github.com/AndreyAkinshin/vdiff/internal/corpus"
	"github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
	"github.com/AndreyAkinshin/vdiff/internal/project"
)

// lookPath is replaced in tests.
var lookPath project.LookPathFunc

// cmdInit initializes a vdiff project in the current directory.
// It is idempotent: only missing files are created.
func cmdInit(args []string) int {
	if len(args) > 0 {
		out.ErrorPrefix("init: unexpected argument %q", args[0])
		return errors.ExitConfigError
	}

	cwd, err := os.Getwd()
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitRuntimeError
	}

	configDir := filepath.Join(cwd, project.ConfigDirName)
	configPath := filepath.Join(configDir, project.ConfigFileName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitPersistenceError
	}

	var created []string
	isNewProject := false
	detected := map[model.Backend]string{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		isNewProject = true
		detected = project.DetectBackends(lookPath)

		cfg := &config.Config{
			Tests: config.TestsConfig{
				Directory: config.DefaultTestsDirectory,
				Results:   config.DefaultResultsFile,
			},
			Backends: make(map[string]config.BackendConfig, len(detected)),
		}
		for b, exe := range detected {
			cfg.Backends[b.Key()] = config.BackendConfig{Tool: exe}
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			out.ErrorPrefix("%v", err)
			return errors.ExitRuntimeError
		}
		data = append(data, '\n')
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			out.ErrorPrefix("%v", err)
			return errors.ExitPersistenceError
		}
		created = append(created, filepath.ToSlash(filepath.Join(project.ConfigDirName, project.ConfigFileName)))
	}

	proj, err := project.LoadProjectFrom(cwd)
	if err != nil && !errors.IsKind(err, errors.KindEnvironment) {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	testsDir := filepath.Join(cwd, config.DefaultTestsDirectory)
	resultsPath := filepath.Join(cwd, config.DefaultResultsFile)
	if proj != nil {
		testsDir, resultsPath = proj.TestsPath(), proj.ResultsPath()
	} else if cfg, err := config.LoadWithDefaults(configPath); err == nil {
		testsDir = resolveIn(cwd, cfg.Tests.Directory)
		resultsPath = resolveIn(cwd, cfg.Tests.Results)
	}

	if _, err := os.Stat(testsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(testsDir, 0755); err != nil {
			out.WarningSimple("could not create tests directory: %v", err)
		} else {
			created = append(created, relTo(cwd, testsDir)+"/")
		}
	}

	if _, err := os.Stat(resultsPath); os.IsNotExist(err) {
		empty, _ := corpus.NewTests(nil)
		if err := empty.Save(resultsPath); err != nil {
			out.WarningSimple("could not create verdict file: %v", err)
		} else {
			created = append(created, relTo(cwd, resultsPath))
		}
	}

	updateGitignore(cwd)

	out.Println("")
	switch {
	case isNewProject:
		out.Success("Initialized vdiff project")
		if len(detected) > 0 {
			out.HelpSection("detected backends:")
			keys := make([]string, 0, len(detected))
			for b, exe := range detected {
				keys = append(keys, b.Key()+" ("+exe+")")
			}
			sort.Strings(keys)
			out.List(keys)
		}
	case len(created) > 0:
		out.Success("Updated vdiff project")
	default:
		out.Info("Project already initialized (nothing to do)")
	}

	if len(created) > 0 {
		out.HelpSection("created:")
		out.List(created)
	}
	if isNewProject {
		printNextSteps()
	}
	return 0
}

func resolveIn(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func relTo(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

// updateGitignore adds the saved-image directory to .gitignore.
func updateGitignore(root string) {
	gitignorePath := filepath.Join(root, ".gitignore")
	entries := []string{
		"# vdiff",
		config.DefaultOutputDir + "/",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}
	if strings.Contains(existing, "# vdiff") {
		return
	}

	var content strings.Builder
	if existing != "" {
		content.WriteString(existing)
		if !strings.HasSuffix(existing, "\n") {
			content.WriteString("\n")
		}
		content.WriteString("\n")
	}
	for _, entry := range entries {
		content.WriteString(entry)
		content.WriteString("\n")
	}

	if err := os.WriteFile(gitignorePath, []byte(content.String()), 0644); err != nil {
		out.WarningSimple("could not update .gitignore: %v", err)
	}
}

func printNextSteps() {
	out.HelpSection("next steps:")
	out.Println("  1. Put SVG tests under tests/ (e.g. tests/shapes/rect.svg)")
	out.Println("  2. Add reference PNGs next to them (tests/shapes/rect.png)")
	out.Println("  3. Run 'vdiff resync' to add them to the verdict file")
	out.Println("  4. Run 'vdiff render-all --record' to compute verdicts")
	out.Println("")
}
