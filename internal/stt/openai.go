package stt

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider implements STT using the OpenAI audio transcription API
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	language string
	log      *logrus.Entry
}

// NewOpenAIProvider creates a new OpenAI STT provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL, model, language string, httpClient *http.Client, log *logrus.Entry) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: whisperLanguage(language),
		log:      log.WithField("provider", "openai"),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Transcribe uploads the audio file and returns the recognized text
func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	audioBytes, err := readAudio(audioPath)
	if err != nil {
		return nil, err
	}

	// with Reader set, FilePath only names the upload
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		Reader:   bytes.NewReader(audioBytes),
		FilePath: filepath.Base(audioPath),
		Language: p.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI transcription failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, ErrNoSpeech
	}
	p.log.WithField("language", resp.Language).Debug("response received")

	return &Result{
		Transcript: resp.Text,
		Provider:   p.Name(),
	}, nil
}

// whisperLanguage reduces a BCP-47 tag such as "en-US" to the ISO-639-1
// code the transcription endpoint expects.
func whisperLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
