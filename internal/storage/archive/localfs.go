// internal/storage/archive/localfs.go
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalFS implements Storage for local filesystem
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS storage
func NewLocalFS(basePath string) (*LocalFS, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) fullPath(p string) (string, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(cleaned)), nil
}

// Write replaces the file atomically through a temporary sibling.
func (l *LocalFS) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.fullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return wrapIO("mkdir", p, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return wrapIO("write", p, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return wrapIO("write", p, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapIO("write", p, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return wrapIO("chmod", p, err)
	}
	return os.Rename(tmp.Name(), full)
}

func (l *LocalFS) Read(ctx context.Context, p string) ([]byte, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// List returns slash-separated paths relative to the base, sorted.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := l.basePath
	if prefix != "" {
		full, err := l.fullPath(prefix)
		if err != nil {
			return nil, err
		}
		searchPath = full
	}

	var paths []string
	err := filepath.WalkDir(searchPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(l.basePath, p)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	sort.Strings(paths)
	return paths, err
}

func (l *LocalFS) Exists(ctx context.Context, p string) (bool, error) {
	full, err := l.fullPath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
