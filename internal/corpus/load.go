package corpus

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	vdifferrors "github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Header is the first line of every verdict file.
var Header = "title," + strings.Join(model.BackendKeys()[1:], ",")

// rowWidth is the base name column plus one column per verdict backend.
var rowWidth = 1 + len(model.VerdictBackends)

// Load reads a verdict file. Test paths are resolved against corpusRoot.
//
// For the custom suite, Load ignores verdictPath and scans corpusRoot instead.
// Loading stops at the first empty line. Any malformed row fails the whole load.
func Load(suite model.Suite, verdictPath, corpusRoot string) (*Tests, error) {
	if suite == model.SuiteCustom {
		return LoadCustom(corpusRoot)
	}

	data, err := os.ReadFile(verdictPath)
	if err != nil {
		return nil, &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindCorpusLoad,
			Message: "failed to read verdict file",
			Path:    verdictPath,
			Cause:   err,
		}
	}

	root, err := filepath.Abs(corpusRoot)
	if err != nil {
		return nil, vdifferrors.CorpusLoad(verdictPath, 0, err.Error())
	}

	tests := &Tests{index: make(map[string]int)}
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		row := i + 1
		if row == 1 {
			continue // header
		}
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}

		fields := strings.Split(line, ",")
		if len(fields) != rowWidth {
			return nil, vdifferrors.CorpusLoadf(verdictPath, row, "invalid columns count: got %d, want %d", len(fields), rowWidth)
		}

		testPath := filepath.Join(root, filepath.FromSlash(fields[0]))
		item := TestItem{
			Path:     testPath,
			BaseName: resolveBaseName(testPath),
			State:    make(map[model.Backend]model.TestState, len(model.VerdictBackends)),
		}
		for col, b := range model.VerdictBackends {
			s, err := parseState(fields[col+1])
			if err != nil {
				return nil, vdifferrors.CorpusLoadf(verdictPath, row, "column %s: %v", b.Key(), err)
			}
			item.State[b] = s
		}
		item.Title = parseTitle(testPath)

		if err := tests.add(item); err != nil {
			return nil, vdifferrors.CorpusLoad(verdictPath, row, err.Error())
		}
	}

	return tests, nil
}

func parseState(s string) (model.TestState, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &stateError{value: s}
	}
	st := model.TestState(n)
	if !st.Valid() {
		return 0, &stateError{value: s}
	}
	return st, nil
}

type stateError struct {
	value string
}

func (e *stateError) Error() string {
	return "invalid state ID " + strconv.Quote(e.value)
}

// LoadCustom scans root recursively for .svg and .svgz files.
// Tests are ordered by path and named by their slash-separated path relative to root.
func LoadCustom(root string) (*Tests, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, vdifferrors.CorpusLoad(root, 0, err.Error())
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 || d.IsDir() {
			return nil
		}
		if isVectorFile(path, true) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &vdifferrors.VdiffError{
			Kind:    vdifferrors.KindCorpusLoad,
			Message: "failed to scan corpus",
			Path:    root,
			Cause:   err,
		}
	}
	sort.Strings(paths)

	tests := &Tests{index: make(map[string]int, len(paths))}
	for _, p := range paths {
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return nil, vdifferrors.CorpusLoad(p, 0, err.Error())
		}
		if err := tests.add(TestItem{Path: p, BaseName: filepath.ToSlash(rel)}); err != nil {
			return nil, vdifferrors.CorpusLoad(root, 0, err.Error())
		}
	}
	return tests, nil
}

// isVectorFile reports whether path has an SVG extension.
// Compressed .svgz files are accepted only when allowCompressed is set.
func isVectorFile(path string, allowCompressed bool) bool {
	switch filepath.Ext(path) {
	case ".svg":
		return true
	case ".svgz":
		return allowCompressed
	default:
		return false
	}
}
