// Package audio converts uploaded recordings to the canonical WAV container
// the recognizers are fed with.
package audio

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"audioscribe/internal/apperr"
)

// CanonicalExt is the extension of the canonical audio container.
const CanonicalExt = ".wav"

// Codec decodes src and writes it to dst in the canonical format.
type Codec interface {
	Convert(ctx context.Context, src, dst string) error
}

// Normalizer turns arbitrary audio files into canonical ones.
type Normalizer struct {
	codec Codec
	log   *logrus.Entry
}

// NewNormalizer creates a normalizer backed by codec.
func NewNormalizer(codec Codec, log *logrus.Entry) *Normalizer {
	return &Normalizer{codec: codec, log: log}
}

// IsCanonical reports whether path already carries the canonical extension.
// Only the name is inspected, never the bytes.
func IsCanonical(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CanonicalExt)
}

// CanonicalPath returns path with its extension replaced by CanonicalExt.
func CanonicalPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + CanonicalExt
}

// Normalize returns path unchanged when it is already canonical. Otherwise
// it converts the file to a sibling with the canonical extension and returns
// that path.
func (n *Normalizer) Normalize(ctx context.Context, path string) (string, error) {
	if IsCanonical(path) {
		return path, nil
	}
	dst := CanonicalPath(path)
	log := n.log.WithFields(logrus.Fields{"src": filepath.Base(path), "dst": filepath.Base(dst)})
	log.Debug("converting audio")

	if err := n.codec.Convert(ctx, path, dst); err != nil {
		log.WithError(err).Warn("audio conversion failed")
		return "", apperr.Conversion(err)
	}
	return dst, nil
}
