package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(16*1024*1024), cfg.MaxContentLength)
	assert.Equal(t, 30*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, "uploads", cfg.UploadFolder)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Blob.Backend)
	assert.Equal(t, "google", cfg.STT.Provider)
	assert.Equal(t, "ffmpeg", cfg.Audio.FFmpegPath)
	assert.Equal(t, 90*time.Second, cfg.STT.HTTPTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("MAX_CONTENT_LENGTH", "32MB")
	t.Setenv("PROCESSING_TIMEOUT", "45")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "scribe")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "audio")
	t.Setenv("STT_PROVIDER", "OpenAI")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(32_000_000), cfg.MaxContentLength)
	assert.Equal(t, 45*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "scribe", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "audio", cfg.Blob.Bucket)
	assert.Equal(t, "openai", cfg.STT.Provider)
}

func TestLoad_RejectsExpressionSize(t *testing.T) {
	t.Setenv("MAX_CONTENT_LENGTH", "16 * 1024 * 1024")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONTENT_LENGTH")
}

func TestLoad_UnsupportedBackends(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mongo")
		_, err := Load()
		assert.ErrorContains(t, err, "unsupported DB_DRIVER")
	})
	t.Run("blob", func(t *testing.T) {
		t.Setenv("BLOB_BACKEND", "gridfs")
		_, err := Load()
		assert.ErrorContains(t, err, "unsupported BLOB_BACKEND")
	})
	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("BLOB_BACKEND", "s3")
		_, err := Load()
		assert.ErrorContains(t, err, "S3_BUCKET")
	})
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "16MiB", want: 16 << 20},
		{in: "16 MiB", want: 16 << 20},
		{in: "512KB", want: 512_000},
		{in: "1048576", want: 1 << 20},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "lots", wantErr: true},
		{in: "__import__('os')", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeout(t *testing.T) {
	d, err := ParseTimeout("30")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = ParseTimeout("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseTimeout("0")
	assert.Error(t, err)
	_, err = ParseTimeout("soon")
	assert.Error(t, err)
}

func TestLoad_FieldValidation(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"STT_PROVIDER", "sphinx", "STT_PROVIDER"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"AUDIO_CHANNELS", "-1", "AUDIO_CHANNELS"},
		{"PORT", "http", "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
