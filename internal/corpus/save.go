package corpus

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	vdifferrors "github.com/AndreyAkinshin/vdiff/internal/errors"
	"github.com/AndreyAkinshin/vdiff/internal/model"
)

// Marshal renders the collection in verdict file format.
func (t *Tests) Marshal() []byte {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteByte('\n')
	for i := range t.items {
		item := &t.items[i]
		sb.WriteString(item.BaseName)
		for _, b := range model.VerdictBackends {
			sb.WriteByte(',')
			sb.WriteString(strconv.Itoa(int(item.StateOf(b))))
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// Save writes the collection to path. The file is replaced atomically, so a
// failed save leaves the previous verdict file intact. In-memory state is kept
// either way; callers may retry.
func (t *Tests) Save(path string) error {
	if err := writeFileAtomic(path, t.Marshal()); err != nil {
		return vdifferrors.Persistence(path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
