// Package project provides project discovery and loading functionality.
package project

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigDirName is the name of the vdiff configuration directory.
const ConfigDirName = ".vdiff"

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "config.json"

// ErrNoProjectRoot is returned when .vdiff/config.json is not found.
var ErrNoProjectRoot = errors.New(".vdiff/config.json not found: not a vdiff project (or any parent up to the root)")

// FindRoot walks up from the current working directory until it finds .vdiff/config.json.
func FindRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRootFrom(cwd)
}

// FindRootFrom walks up from the given directory until it finds .vdiff/config.json.
func FindRootFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProjectRoot
		}
		dir = parent
	}
}
