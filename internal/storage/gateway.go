package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"audioscribe/internal/apperr"
	"audioscribe/internal/model"
	"audioscribe/internal/repository"
)

// Gateway is the write path into the blob and metadata stores. Both calls
// are attempted exactly once; there is no transaction spanning the two.
type Gateway struct {
	blobs   BlobStore
	records repository.TranscriptionRepository
	log     *logrus.Entry
}

// NewGateway creates a gateway over the given stores.
func NewGateway(blobs BlobStore, records repository.TranscriptionRepository, log *logrus.Entry) *Gateway {
	return &Gateway{blobs: blobs, records: records, log: log}
}

// PutBlob stores the audio bytes and returns the generated blob id.
func (g *Gateway) PutBlob(ctx context.Context, r io.Reader, filename string) (string, error) {
	blob, err := g.blobs.Put(ctx, r, filename)
	if err != nil {
		return "", apperr.Storage("blob write", err)
	}
	if statter, ok := g.blobs.(BlobStatter); ok {
		if err := verifyBlob(ctx, statter, blob); err != nil {
			return "", apperr.Storage("blob write", err)
		}
	}
	g.log.WithFields(logrus.Fields{
		"blob_id":  blob.ID,
		"filename": filename,
		"size":     blob.Size,
		"sha256":   blob.SHA256,
	}).Debug("blob stored")
	return blob.ID, nil
}

// verifyBlob checks that the stored metadata describes the bytes just written.
func verifyBlob(ctx context.Context, statter BlobStatter, blob model.StoredBlob) error {
	meta, err := statter.Stat(ctx, blob.ID)
	if err != nil {
		return fmt.Errorf("stat blob %s: %w", blob.ID, err)
	}
	if meta.Size != blob.Size || meta.SHA256 != blob.SHA256 {
		return fmt.Errorf("blob %s metadata mismatch: stored %d bytes sha256 %s, wrote %d bytes sha256 %s",
			blob.ID, meta.Size, meta.SHA256, blob.Size, blob.SHA256)
	}
	return nil
}

// InsertRecord assigns a new id to rec, persists it and returns the id.
func (g *Gateway) InsertRecord(ctx context.Context, rec *model.TranscriptionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := g.records.Create(ctx, rec); err != nil {
		return "", apperr.Storage("record insert", err)
	}
	g.log.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"blob_id":   rec.BlobID,
	}).Debug("record stored")
	return rec.ID, nil
}
