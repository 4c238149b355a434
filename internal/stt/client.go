package stt

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"audioscribe/internal/apperr"
)

// Client is the pipeline-facing transcription client. It hides the provider
// behind a single error type.
type Client struct {
	provider Provider
	log      *logrus.Entry
}

// NewClient wraps provider.
func NewClient(provider Provider, log *logrus.Entry) *Client {
	return &Client{provider: provider, log: log.WithField("provider", provider.Name())}
}

// Transcribe returns the provider's text verbatim. Every failure, including
// an empty transcript, is reported as a recognition error.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	start := time.Now()
	res, err := c.provider.Transcribe(ctx, audioPath)
	if err == nil && (res == nil || strings.TrimSpace(res.Transcript) == "") {
		err = ErrNoSpeech
	}
	log := c.log.WithFields(logrus.Fields{
		"file":        filepath.Base(audioPath),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Warn("transcription failed")
		return "", apperr.Recognition(err)
	}

	log.WithFields(logrus.Fields{
		"confidence": res.Confidence,
		"length":     len(res.Transcript),
	}).Info("transcription successful")
	return res.Transcript, nil
}
