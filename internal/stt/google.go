package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleScope = "https://www.googleapis.com/auth/cloud-platform"

// GoogleProvider implements STT using Google Cloud Speech-to-Text REST API
type GoogleProvider struct {
	baseURL    string
	projectID  string
	apiKey     string
	language   string
	httpClient *http.Client
	useAPIKey  bool // true if using API key, false if using service account
	log        *logrus.Entry
}

// GoogleOptions configures NewGoogleProvider.
type GoogleOptions struct {
	BaseURL string
	// ProjectID, when set, is sent as the quota project for OAuth requests.
	ProjectID string
	// KeyData can be either:
	//   - An API key (39 characters, typically starts with "AIzaSy")
	//   - A file path to a JSON key file
	//   - A JSON string containing the service account credentials
	//   - Empty, to use application default credentials
	KeyData  string
	Language string
	Timeout  time.Duration
}

// NewGoogleProvider creates a new Google STT provider
func NewGoogleProvider(ctx context.Context, opts GoogleOptions, log *logrus.Entry) (*GoogleProvider, error) {
	p := &GoogleProvider{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		projectID: opts.ProjectID,
		language:  opts.Language,
		log:       log.WithField("provider", "google"),
	}
	keyData := strings.TrimSpace(opts.KeyData)

	if isGoogleAPIKey(keyData) {
		p.log.Info("using API key authentication")
		p.apiKey = keyData
		p.useAPIKey = true
		p.httpClient = &http.Client{Timeout: opts.Timeout}
		return p, nil
	}

	var creds *google.Credentials
	var err error
	switch {
	case keyData == "":
		creds, err = google.FindDefaultCredentials(ctx, googleScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w. Please set GOOGLE_STT_KEY_FILE", err)
		}
	case strings.HasPrefix(keyData, "{"):
		p.log.Info("using JSON credentials from environment variable")
		creds, err = google.CredentialsFromJSON(ctx, []byte(keyData), googleScope)
	default:
		p.log.WithField("key_file", keyData).Info("reading key file")
		jsonData, readErr := os.ReadFile(keyData)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read key file '%s': %w", keyData, readErr)
		}
		creds, err = google.CredentialsFromJSON(ctx, jsonData, googleScope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
	}

	// the oauth2 transport picks up the base client's timeout
	base := &http.Client{Timeout: opts.Timeout}
	p.httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
	p.httpClient.Timeout = opts.Timeout
	return p, nil
}

func isGoogleAPIKey(s string) bool {
	return len(s) == 39 && strings.HasPrefix(s, "AIzaSy")
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// GoogleSTTRequest represents Google Speech-to-Text API request
type GoogleSTTRequest struct {
	Config GoogleSTTConfig `json:"config"`
	Audio  GoogleSTTAudio  `json:"audio"`
}

// GoogleSTTConfig represents recognition config
type GoogleSTTConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz,omitempty"`
	LanguageCode    string `json:"languageCode"`
}

// GoogleSTTAudio represents audio data
type GoogleSTTAudio struct {
	Content string `json:"content"` // Base64 encoded
}

// GoogleSTTResponse represents Google Speech-to-Text API response
type GoogleSTTResponse struct {
	Results []GoogleSTTResult `json:"results"`
	Error   *GoogleSTTError   `json:"error,omitempty"`
}

// GoogleSTTResult represents a recognition result
type GoogleSTTResult struct {
	Alternatives []GoogleSTTAlternative `json:"alternatives"`
}

// GoogleSTTAlternative represents a transcript alternative
type GoogleSTTAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// GoogleSTTError represents an API error
type GoogleSTTError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Transcribe transcribes an audio file using Google Cloud Speech-to-Text REST API
func (p *GoogleProvider) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	audioBytes, err := readAudio(audioPath)
	if err != nil {
		return nil, err
	}

	// WAV headers carry the sample rate, so it is left for the API to read
	reqBody := GoogleSTTRequest{
		Config: GoogleSTTConfig{
			Encoding:     googleEncoding(filepath.Ext(audioPath)),
			LanguageCode: p.language,
		},
		Audio: GoogleSTTAudio{
			Content: base64.StdEncoding.EncodeToString(audioBytes),
		},
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if !p.useAPIKey && p.projectID != "" {
		// bills the request to this project instead of the credential's own
		req.Header.Set("X-Goog-User-Project", p.projectID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Google Speech-to-Text: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	p.log.WithField("preview", preview(body)).Debug("response received")

	var sttResp GoogleSTTResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(body, &sttResp); err == nil && sttResp.Error != nil {
			return nil, fmt.Errorf("Google Speech-to-Text API error: %s", sttResp.Error.Message)
		}
		return nil, fmt.Errorf("Google Speech-to-Text API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &sttResp); err != nil {
		return nil, fmt.Errorf("failed to parse Google Speech-to-Text response: %w", err)
	}
	if sttResp.Error != nil {
		return nil, fmt.Errorf("Google Speech-to-Text API error: %s", sttResp.Error.Message)
	}

	// long audio comes back as consecutive results; keep the best
	// alternative of each, in order
	var transcript strings.Builder
	var confidence float64
	for i, result := range sttResp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		transcript.WriteString(result.Alternatives[0].Transcript)
		if i == 0 {
			confidence = result.Alternatives[0].Confidence
		}
	}
	if strings.TrimSpace(transcript.String()) == "" {
		return nil, ErrNoSpeech
	}

	return &Result{
		Transcript:  transcript.String(),
		Confidence:  confidence,
		Provider:    p.Name(),
		RawResponse: string(body),
	}, nil
}

// endpoint is the v1 recognize method; OAuth tokens go in the Authorization
// header, API keys in the query string.
func (p *GoogleProvider) endpoint() string {
	endpoint := p.baseURL + "/v1/speech:recognize"
	if p.useAPIKey {
		endpoint += "?key=" + url.QueryEscape(p.apiKey)
	}
	return endpoint
}

// googleEncoding determines the API encoding based on file extension
func googleEncoding(fileExt string) string {
	switch strings.ToLower(fileExt) {
	case ".wav":
		return "LINEAR16"
	case ".mp3":
		return "MP3"
	case ".ogg":
		return "OGG_OPUS"
	case ".flac":
		return "FLAC"
	default:
		return "LINEAR16"
	}
}
