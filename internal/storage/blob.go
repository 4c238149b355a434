package storage

import (
	"context"
	"errors"
	"io"

	"audioscribe/internal/model"
)

// ErrBlobNotFound is returned by Open when no blob has the given id.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the byte-storage abstraction behind the gateway.
type BlobStore interface {
	// Put streams r into the store under a newly generated id.
	Put(ctx context.Context, r io.Reader, filename string) (model.StoredBlob, error)
	// Open returns a reader for the blob content. The caller closes it.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// BlobStatter is implemented by stores that keep per-blob metadata next to
// the content.
type BlobStatter interface {
	Stat(ctx context.Context, id string) (model.StoredBlob, error)
}
