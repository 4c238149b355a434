package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"audioscribe/internal/config"
)

const maxStderrInError = 500

// FFmpegCodec converts audio by running the ffmpeg binary.
type FFmpegCodec struct {
	Path       string
	SampleRate int // 0 keeps the source rate
	Channels   int // 0 keeps the source layout
}

// NewFFmpegCodec creates a codec from the audio config.
func NewFFmpegCodec(cfg config.AudioConfig) *FFmpegCodec {
	path := cfg.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegCodec{Path: path, SampleRate: cfg.SampleRate, Channels: cfg.Channels}
}

// Convert decodes src with whatever demuxer ffmpeg detects and writes a
// 16-bit PCM WAV file to dst.
func (c *FFmpegCodec) Convert(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, c.Path, c.args(src, dst)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrInError {
			msg = msg[len(msg)-maxStderrInError:]
		}
		if msg == "" {
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return nil
}

func (c *FFmpegCodec) args(src, dst string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", src}
	if c.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.SampleRate))
	}
	if c.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(c.Channels))
	}
	return append(args, "-c:a", "pcm_s16le", "-f", "wav", dst)
}
