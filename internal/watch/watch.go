// Package watch reports changes to the set of SVG files under a corpus root.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AndreyAkinshin/vdiff/internal/logging"
)

// DefaultDebounce is the quiet period after the last change before a callback fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory tree. Subdirectories created later are added on the fly.
type Watcher struct {
	root     string
	debounce time.Duration
	fw       *fsnotify.Watcher
	watched  map[string]bool
}

// New starts watching every directory under root.
func New(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		debounce: debounce,
		fw:       fw,
		watched:  make(map[string]bool),
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// Run calls onChange once per burst of SVG additions, removals, or renames.
// It returns when ctx is done, or with the first error onChange returns.
func (w *Watcher) Run(ctx context.Context, onChange func() error) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			logging.Logger().Warn("watch error", "root", w.root, "error", err)
		case <-timer.C:
			if err := onChange(); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if err := w.addTree(ev.Name); err == nil && w.watched[ev.Name] {
			return true // new directory, possibly with files already in it
		}
	}
	if w.watched[ev.Name] {
		delete(w.watched, ev.Name)
		return true
	}
	return filepath.Ext(ev.Name) == ".svg"
}

// addTree watches dir and its subdirectories. Non-directories are ignored.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || w.watched[path] {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			return err
		}
		w.watched[path] = true
		logging.Logger().Debug("watching directory", "path", path)
		return nil
	})
}
