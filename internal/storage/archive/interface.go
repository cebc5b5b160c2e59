// internal/storage/archive/interface.go

// Package archive stores published allocation runs on the local filesystem
// or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// Storage defines the interface for run archive backends
type Storage interface {
	// Write stores data at the given slash-separated path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend.
type Config struct {
	Type string // "localfs" or "s3"
	Path string
	S3   S3Config
}

// Open builds the backend named by cfg.Type.
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown archive type %q", cfg.Type)
	}
}

// cleanPath normalises p to a relative slash path and rejects paths that
// would leave the archive root.
func cleanPath(p string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", core.Errorf(core.ErrInvalidParameter, "empty archive path %q", p)
	}
	if strings.Contains(p, "..") {
		return "", core.Errorf(core.ErrInvalidParameter, "archive path %q escapes the root", p)
	}
	return cleaned, nil
}

func wrapIO(op, p string, err error) error {
	return fmt.Errorf("archive %s %s: %w", op, p, err)
}
