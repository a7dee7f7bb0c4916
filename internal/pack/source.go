package pack

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Source resolves the resources a pack references.
type Source interface {
	// ID distinguishes sources that may share resource names.
	ID() string
	Open(ref string) ([]byte, error)
}

// DirSource reads resources relative to a pack directory.
type DirSource struct {
	root string
	fsys fs.FS
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &DirSource{root: abs, fsys: os.DirFS(abs)}
}

func (d *DirSource) ID() string {
	return d.root
}

// Open reads ref. Pack references may use either slash direction.
func (d *DirSource) Open(ref string) ([]byte, error) {
	clean := path.Clean(strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("invalid resource reference %q", ref)
	}
	data, err := fs.ReadFile(d.fsys, clean)
	if err != nil {
		return nil, fmt.Errorf("read resource %q: %w", ref, err)
	}
	return data, nil
}
