package repository

import (
	"context"
	"errors"

	"audioscribe/internal/model"
)

// ErrNotFound is returned when no record matches the requested id.
var ErrNotFound = errors.New("transcription not found")

// TranscriptionRepository defines the interface for transcription record data access
type TranscriptionRepository interface {
	// Create inserts a new record. The caller assigns rec.ID.
	Create(ctx context.Context, rec *model.TranscriptionRecord) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*model.TranscriptionRecord, error)
}
