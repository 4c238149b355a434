package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"audioscribe/internal/model"
)

const sidecarExt = ".json"

// LocalBlobStore stores blobs in an id-addressed tree on the local
// filesystem: <root>/<id[0:2]>/<id> plus a JSON sidecar with metadata.
type LocalBlobStore struct {
	root string
}

// NewLocalBlobStore creates a local blob store rooted at root.
func NewLocalBlobStore(root string) (*LocalBlobStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalBlobStore{root: abs}, nil
}

// Put streams bytes into a temp file, hashing as it goes, then renames it
// into place under a fresh id.
func (s *LocalBlobStore) Put(ctx context.Context, r io.Reader, filename string) (model.StoredBlob, error) {
	var zero model.StoredBlob
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	blob := model.StoredBlob{
		ID:        uuid.NewString(),
		Filename:  filename,
		Size:      n,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
	dst := s.pathFor(blob.ID)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}
	if err := writeSidecar(dst+sidecarExt, blob); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		_ = os.Remove(dst + sidecarExt)
		return zero, err
	}
	return blob, nil
}

// Open returns a reader for blob content.
func (s *LocalBlobStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := uuid.Validate(id); err != nil {
		return nil, fmt.Errorf("invalid blob id %q", id)
	}
	f, err := os.Open(s.pathFor(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	return f, err
}

// Stat reads the sidecar metadata of a blob.
func (s *LocalBlobStore) Stat(ctx context.Context, id string) (model.StoredBlob, error) {
	var blob model.StoredBlob
	if err := ctx.Err(); err != nil {
		return blob, err
	}
	if err := uuid.Validate(id); err != nil {
		return blob, fmt.Errorf("invalid blob id %q", id)
	}
	data, err := os.ReadFile(s.pathFor(id) + sidecarExt)
	if errors.Is(err, os.ErrNotExist) {
		return blob, fmt.Errorf("%w: %s", ErrBlobNotFound, id)
	}
	if err != nil {
		return blob, err
	}
	err = json.Unmarshal(data, &blob)
	return blob, err
}

func (s *LocalBlobStore) pathFor(id string) string {
	return filepath.Join(s.root, id[0:2], id)
}

func writeSidecar(path string, blob model.StoredBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
