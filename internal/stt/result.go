package stt

import "errors"

// ErrNoSpeech is returned when the provider recognized nothing.
var ErrNoSpeech = errors.New("no speech detected in audio")

// Result represents the result of a speech-to-text transcription
type Result struct {
	Transcript  string  // The transcribed text, verbatim
	Confidence  float64 // Confidence score (0.0-1.0), may be 0 if not provided
	Provider    string  // The provider used (e.g., "openai", "google")
	RawResponse string  // Raw response from the provider (for debugging/logging)
}
