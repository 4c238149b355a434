package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioscribe/internal/config"
	"audioscribe/internal/db"
	"audioscribe/internal/logger"
	"audioscribe/internal/model"
)

func newTestRepository(t *testing.T) TranscriptionRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, config.DatabaseConfig{
		Driver:         db.DriverSQLite,
		Path:           filepath.Join(t.TempDir(), "transcriptions.db"),
		ConnectTimeout: time.Second,
	}, logger.Discard().Entry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, Migrate(ctx, conn))
	return NewSQLRepository(conn, db.DriverSQLite)
}

func TestSQLRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := &model.TranscriptionRecord{
		ID:       uuid.NewString(),
		Name:     "Unknown",
		Filename: "meeting.wav",
		BlobID:   uuid.NewString(),
		Text:     "hello world",
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Unknown", got.Name)
	assert.Equal(t, "meeting.wav", got.Filename)
	assert.Equal(t, rec.BlobID, got.BlobID)
	assert.Equal(t, "hello world", got.Text)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLRepository_DuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := &model.TranscriptionRecord{ID: "fixed", Name: "a", Filename: "a.wav", BlobID: "b", Text: "t"}
	require.NoError(t, repo.Create(ctx, rec))
	assert.Error(t, repo.Create(ctx, rec))
}

func TestSQLRepository_MissingIDRejected(t *testing.T) {
	repo := newTestRepository(t)
	assert.Error(t, repo.Create(context.Background(), &model.TranscriptionRecord{Name: "x"}))
}

func TestSQLRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := &sqlRepository{postgres: true}
	assert.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))

	lite := &sqlRepository{}
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}
