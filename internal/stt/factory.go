package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"audioscribe/internal/config"
)

// CreateProvider creates an STT provider from configuration
func CreateProvider(ctx context.Context, cfg config.STTConfig, log *logrus.Entry) (Provider, error) {
	providerName := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if providerName == "" {
		providerName = "google"
		log.Info("STT_PROVIDER not set, defaulting to 'google'")
	}

	switch providerName {
	case "google":
		return createGoogleProvider(ctx, cfg, log)
	case "openai":
		return createOpenAIProvider(cfg, log)
	case "fpt":
		return createFPTProvider(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: google, openai, fpt", providerName)
	}
}

func createFPTProvider(cfg config.STTConfig, log *logrus.Entry) (Provider, error) {
	if cfg.FPTApiKey == "" {
		return nil, fmt.Errorf("FPT_AI_API_KEY is not set")
	}
	if cfg.FPTSTTURL == "" {
		return nil, fmt.Errorf("FPT_AI_STT_URL is not set")
	}
	log.WithField("url", cfg.FPTSTTURL).Info("creating FPT STT provider")
	return NewFPTProvider(cfg.FPTApiKey, cfg.FPTSTTURL, &http.Client{Timeout: cfg.HTTPTimeout}, log), nil
}

func createOpenAIProvider(cfg config.STTConfig, log *logrus.Entry) (Provider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	log.WithField("model", cfg.OpenAIModel).Info("creating OpenAI STT provider")
	return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.Language,
		&http.Client{Timeout: cfg.HTTPTimeout}, log), nil
}

func createGoogleProvider(ctx context.Context, cfg config.STTConfig, log *logrus.Entry) (Provider, error) {
	if cfg.GoogleURL == "" {
		return nil, fmt.Errorf("GOOGLE_STT_URL is not set")
	}
	log.WithField("project", cfg.GoogleProjectID).Info("creating Google STT provider")
	p, err := NewGoogleProvider(ctx, GoogleOptions{
		BaseURL:   cfg.GoogleURL,
		ProjectID: cfg.GoogleProjectID,
		KeyData:   cfg.GoogleKeyData,
		Language:  cfg.Language,
		Timeout:   cfg.HTTPTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}
