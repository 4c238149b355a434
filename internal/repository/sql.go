package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"audioscribe/internal/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS transcriptions (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		filename    TEXT NOT NULL,
		blob_id     TEXT NOT NULL,
		text        TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)
`

type sqlRepository struct {
	db       *sql.DB
	postgres bool
}

// NewSQLRepository creates a repository over db. driver selects the
// placeholder style: "postgres" uses $n, anything else uses ?.
func NewSQLRepository(db *sql.DB, driver string) TranscriptionRepository {
	return &sqlRepository{db: db, postgres: driver == "postgres"}
}

// Migrate creates the transcriptions table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create transcriptions table: %w", err)
	}
	return nil
}

// Create creates a new transcription record
func (r *sqlRepository) Create(ctx context.Context, rec *model.TranscriptionRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transcriptions (id, name, filename, blob_id, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID,
		rec.Name,
		rec.Filename,
		rec.BlobID,
		rec.Text,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transcription: %w", err)
	}
	return nil
}

// GetByID retrieves a transcription record by ID
func (r *sqlRepository) GetByID(ctx context.Context, id string) (*model.TranscriptionRecord, error) {
	query := `
		SELECT id, name, filename, blob_id, text, created_at
		FROM transcriptions
		WHERE id = ?
	`

	var rec model.TranscriptionRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rec.ID,
		&rec.Name,
		&rec.Filename,
		&rec.BlobID,
		&rec.Text,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	return &rec, nil
}

// rebind rewrites ? placeholders to $1..$n for postgres.
func (r *sqlRepository) rebind(query string) string {
	if !r.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
