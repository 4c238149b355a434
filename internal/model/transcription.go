package model

import (
	"io"
	"time"
)

// DefaultName is used when an upload carries no display name.
const DefaultName = "Unknown"

// UploadRequest is the request-scoped input of the upload pipeline.
type UploadRequest struct {
	File     io.Reader // nil when the request carried no file part
	Filename string    // declared filename, unsanitized
	Name     string    // optional display name
}

// StoredBlob describes normalized audio bytes persisted in the blob store.
type StoredBlob struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptionRecord is the persisted result of a successful upload.
type TranscriptionRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filename  string    `json:"filename"`
	BlobID    string    `json:"blob_id"` // non-owning reference to a StoredBlob
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResult is returned to the caller after a successful run.
type UploadResult struct {
	Filename      string `json:"filename"`
	Transcription string `json:"transcription"`
	ID            string `json:"id"`
}
