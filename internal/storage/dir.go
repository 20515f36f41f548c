package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir serves objects from a local directory tree.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("storage dir %q is not a directory", root)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean("/" + path)
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	b, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(clean)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
