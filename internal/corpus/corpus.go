// Package corpus provides the SVG test corpus and its persisted verdict matrix.
//
// The verdict file is a header line followed by one line per test:
//
//	title,chrome,firefox,safari,resvg,batik,inkscape,librsvg,svgnet,qtsvg,ladybird
//	shapes/rect.svg,1,1,1,0,0,0,0,0,0,0
//
// The first column is the test's base name, its two innermost path segments.
// Base names identify a test across runs and relocations of the corpus root.
package corpus

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// TestItem is one corpus entry.
type TestItem struct {
	Path     string // Absolute path to the SVG file
	BaseName string // Slash-separated identity key
	Title    string // Own suite only
	State    map[model.Backend]model.TestState
}

// StateOf returns the verdict for b. Missing entries are Unknown.
func (t *TestItem) StateOf(b model.Backend) model.TestState {
	return t.State[b]
}

func (t TestItem) clone() TestItem {
	c := t
	c.State = make(map[model.Backend]model.TestState, len(t.State))
	for b, s := range t.State {
		c.State[b] = s
	}
	return c
}

// Tests is an ordered collection of TestItem with unique base names.
type Tests struct {
	items   []TestItem
	index   map[string]int
	skipped []string
}

// NewTests builds a collection, rejecting duplicate base names.
func NewTests(items []TestItem) (*Tests, error) {
	t := &Tests{index: make(map[string]int, len(items))}
	for _, item := range items {
		if err := t.add(item); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tests) add(item TestItem) error {
	if _, ok := t.index[item.BaseName]; ok {
		return fmt.Errorf("duplicate test %q", item.BaseName)
	}
	if item.State == nil {
		item.State = make(map[model.Backend]model.TestState)
	}
	t.index[item.BaseName] = len(t.items)
	t.items = append(t.items, item)
	return nil
}

// Skipped returns the corpus files Resync left out, relative to the corpus root.
// Only files exactly one directory below the root can be addressed by base name.
func (t *Tests) Skipped() []string {
	return append([]string(nil), t.skipped...)
}

// Len returns the number of tests.
func (t *Tests) Len() int {
	return len(t.items)
}

// At returns the i-th test. It panics if i is out of range.
func (t *Tests) At(i int) *TestItem {
	return &t.items[i]
}

// Find returns the index of the test with the given base name.
func (t *Tests) Find(baseName string) (int, bool) {
	i, ok := t.index[baseName]
	return i, ok
}

// Lookup resolves a test by base name or by the tail of its path.
func (t *Tests) Lookup(name string) (int, bool) {
	name = filepath.ToSlash(name)
	if i, ok := t.index[name]; ok {
		return i, true
	}
	for i, item := range t.items {
		if strings.HasSuffix(filepath.ToSlash(item.Path), "/"+name) {
			return i, true
		}
	}
	return 0, false
}

// Items returns a copy of all tests in order.
func (t *Tests) Items() []TestItem {
	out := make([]TestItem, len(t.items))
	for i, item := range t.items {
		out[i] = item.clone()
	}
	return out
}

// SetState records a verdict for the i-th test.
func (t *Tests) SetState(i int, b model.Backend, s model.TestState) error {
	if i < 0 || i >= len(t.items) {
		return fmt.Errorf("test index %d out of range [0-%d)", i, len(t.items))
	}
	if b == model.Reference || !b.Valid() {
		return fmt.Errorf("backend %v has no verdict", b)
	}
	if !s.Valid() {
		return fmt.Errorf("invalid test state %d", s)
	}
	t.items[i].State[b] = s
	return nil
}

// Counts tallies verdicts for one backend.
type Counts struct {
	Unknown int `json:"unknown" yaml:"unknown"`
	Passed  int `json:"passed" yaml:"passed"`
	Failed  int `json:"failed" yaml:"failed"`
	Crashed int `json:"crashed" yaml:"crashed"`
}

// Total returns the number of tests counted.
func (c Counts) Total() int {
	return c.Unknown + c.Passed + c.Failed + c.Crashed
}

func (c *Counts) add(s model.TestState) {
	switch s {
	case model.Passed:
		c.Passed++
	case model.Failed:
		c.Failed++
	case model.Crashed:
		c.Crashed++
	default:
		c.Unknown++
	}
}

// Stats returns per-backend verdict counts for every verdict backend.
func (t *Tests) Stats() map[model.Backend]Counts {
	stats := make(map[model.Backend]Counts, len(model.VerdictBackends))
	for _, b := range model.VerdictBackends {
		var c Counts
		for i := range t.items {
			c.add(t.items[i].StateOf(b))
		}
		stats[b] = c
	}
	return stats
}

// resolveBaseName returns the two innermost segments of path, slash-joined.
func resolveBaseName(path string) string {
	file := filepath.Base(path)
	dir := filepath.Dir(path)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return file
	}
	return parent + "/" + file
}
