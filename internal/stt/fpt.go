package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// minAudioBytes rejects files that cannot hold meaningful audio.
const minAudioBytes = 1000

// FPTProvider implements STT using FPT.AI Speech-to-Text API
type FPTProvider struct {
	apiKey     string
	url        string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewFPTProvider creates a new FPT STT provider
func NewFPTProvider(apiKey, url string, httpClient *http.Client, log *logrus.Entry) *FPTProvider {
	return &FPTProvider{
		apiKey:     apiKey,
		url:        url,
		httpClient: httpClient,
		log:        log.WithField("provider", "fpt"),
	}
}

// Name returns the provider name
func (p *FPTProvider) Name() string {
	return "fpt"
}

// FPTSTTResponse represents FPT.AI STT API response
type FPTSTTResponse struct {
	Hypotheses []struct {
		Utterance  string  `json:"utterance"`
		Confidence float64 `json:"confidence"`
	} `json:"hypotheses"`
	ErrorCode int    `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Transcribe sends audio file to FPT.AI STT API and returns transcript
func (p *FPTProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	audioBytes, err := readAudio(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(audioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", p.apiKey)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to FPT.AI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	p.log.WithField("preview", preview(body)).Debug("response received")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FPT.AI API returned status %d: %s", resp.StatusCode, string(body))
	}

	var sttResp FPTSTTResponse
	if err := json.Unmarshal(body, &sttResp); err != nil {
		return nil, fmt.Errorf("failed to parse FPT.AI response: %w", err)
	}
	if sttResp.ErrorCode != 0 {
		return nil, fmt.Errorf("FPT.AI API error %d: %s", sttResp.ErrorCode, sttResp.Message)
	}
	if len(sttResp.Hypotheses) == 0 || strings.TrimSpace(sttResp.Hypotheses[0].Utterance) == "" {
		return nil, ErrNoSpeech
	}

	// first hypothesis is the best one
	hyp := sttResp.Hypotheses[0]
	return &Result{
		Transcript:  hyp.Utterance,
		Confidence:  hyp.Confidence,
		Provider:    p.Name(),
		RawResponse: string(body),
	}, nil
}

// readAudio loads the whole recording into memory.
func readAudio(audioPath string) ([]byte, error) {
	audioBytes, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(audioBytes) < minAudioBytes {
		return nil, fmt.Errorf("audio file too small (%d bytes), may be empty or corrupted", len(audioBytes))
	}
	return audioBytes, nil
}

// preview returns at most the first 500 bytes of a response body.
func preview(body []byte) string {
	s := string(body)
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
