package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch stages uploads on the local filesystem before they are normalized
// and persisted. Every request gets its own directory so two uploads that
// sanitize to the same filename never share a path.
type Scratch struct {
	root string
}

// NewScratch creates the scratch root if it does not exist.
func NewScratch(root string) (*Scratch, error) {
	if root == "" {
		return nil, fmt.Errorf("scratch root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Scratch{root: abs}, nil
}

// Staged is an upload written to its request directory.
type Staged struct {
	Dir  string // request directory, removed by Cleanup
	Path string // Dir joined with the sanitized filename
	Size int64
}

// Cleanup removes the request directory and everything derived from it.
func (s *Staged) Cleanup() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}

// Stage copies src into a fresh request directory under the given filename,
// which must already be sanitized.
func (s *Scratch) Stage(ctx context.Context, src io.Reader, filename string) (*Staged, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return nil, fmt.Errorf("invalid staging filename %q", filename)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create request directory: %w", err)
	}
	staged := &Staged{Dir: dir, Path: filepath.Join(dir, filename)}

	n, err := saveFile(src, staged.Path)
	if err != nil {
		_ = staged.Cleanup()
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	staged.Size = n
	return staged, nil
}

/* helper */
func saveFile(src io.Reader, dst string) (int64, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}
