package corpus

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	vdifferrors "github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Settings locates a corpus and its verdict file.
type Settings struct {
	Suite       model.Suite
	TestsPath   string // Corpus root
	ResultsPath string // Verdict file
}

// Resync reconciles the verdict file with the corpus on disk and saves the result.
//
// Every .svg file one directory below TestsPath becomes a test, in directory
// order (entries sorted by name, recursively). Files at any other depth would
// not load back from their base name; they are listed in Skipped. A file keeps its previous verdicts when its base
// name was in the verdict file; new files get no verdicts. Tests whose files are
// gone are dropped. A missing verdict file is treated as empty.
func Resync(s Settings) (*Tests, error) {
	root, err := filepath.Abs(s.TestsPath)
	if err != nil {
		return nil, vdifferrors.CorpusLoad(s.TestsPath, 0, err.Error())
	}

	var files []string
	if err := collectFilesRecursive(root, &files); err != nil {
		return nil, &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindCorpusLoad,
			Message: "failed to scan corpus",
			Path:    s.TestsPath,
			Cause:   err,
		}
	}

	old, err := Load(model.SuiteOwn, s.ResultsPath, root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		old = &Tests{index: map[string]int{}}
	}

	fresh := &Tests{index: make(map[string]int, len(files))}
	for _, f := range files {
		baseName := resolveBaseName(f)
		rel, err := filepath.Rel(root, f)
		if err != nil || filepath.ToSlash(rel) != baseName {
			fresh.skipped = append(fresh.skipped, filepath.ToSlash(rel))
			continue
		}
		item := TestItem{Path: f, BaseName: baseName}
		if i, ok := old.Find(baseName); ok {
			item.State = old.items[i].clone().State
		}
		if s.Suite == model.SuiteOwn {
			item.Title = parseTitle(f)
		}
		if err := fresh.add(item); err != nil {
			return nil, vdifferrors.CorpusLoad(f, 0, err.Error())
		}
	}

	if err := fresh.Save(s.ResultsPath); err != nil {
		return nil, err
	}
	return fresh, nil
}

// collectFilesRecursive appends .svg files under dir, entries sorted by name.
func collectFilesRecursive(dir string, files *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if err := collectFilesRecursive(p, files); err != nil {
				return err
			}
		case isVectorFile(p, false):
			*files = append(*files, p)
		}
	}
	return nil
}
