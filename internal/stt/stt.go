// Package stt provides speech-to-text backends.
//
// Supported providers:
//   - groq: Groq's hosted whisper models over the OpenAI-compatible API
//   - assemblyai: AssemblyAI's upload-and-poll REST API
//   - whisper: local whisper.cpp inference via Go bindings
package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

// Transcription failure classes. Providers wrap these so callers can
// branch on the class without knowing the backend.
var (
	// ErrCredentialsMissing indicates the selected provider has no usable
	// API key. Never retried.
	ErrCredentialsMissing = errors.New("stt: credentials missing")
	// ErrRateLimited indicates the provider throttled the request. Retried
	// with backoff.
	ErrRateLimited = errors.New("stt: rate limited")
	// ErrNetwork indicates a transport failure or provider outage. Retried
	// with backoff.
	ErrNetwork = errors.New("stt: network error")
	// ErrProviderRejected indicates the provider refused the request
	// (unsupported audio, bad parameters). Never retried.
	ErrProviderRejected = errors.New("stt: provider rejected request")
	// ErrModelNotLoaded indicates the local whisper model weights are
	// unavailable. Never retried.
	ErrModelNotLoaded = errors.New("stt: model not loaded")
)

// Transcript is the result of one transcription call.
type Transcript struct {
	Text       string
	Language   string
	Provider   string
	Confidence float64 // 0 when the provider reports none
}

// Provider converts an audio clip to text.
type Provider interface {
	// Name identifies the backend ("groq", "assemblyai", "whisper").
	Name() string
	// Transcribe converts the clip to text. The clip is no longer used
	// after the call returns, success or failure.
	Transcribe(ctx context.Context, clip *audio.Clip) (Transcript, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Provider from config. Cloud providers are wrapped with
// bounded retry for transient errors; the local provider has no network
// failure mode and is not wrapped.
func New(cfg *config.STTConfig) (Provider, error) {
	attempts := cfg.Retry.Attempts
	base := time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond

	switch cfg.Provider {
	case "groq":
		return NewRetrying(NewGroq(cfg.Groq), attempts, base), nil
	case "assemblyai":
		return NewRetrying(NewAssemblyAI(cfg.AssemblyAI), attempts, base), nil
	case "whisper":
		return NewWhisper(cfg.Whisper), nil
	default:
		return nil, fmt.Errorf("stt: unknown provider %q (supported: groq, assemblyai, whisper)", cfg.Provider)
	}
}

// missingKey reports whether an API key is absent or an obvious
// placeholder left in the config template.
func missingKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	upper := strings.ToUpper(key)
	return strings.HasPrefix(upper, "YOUR_") || strings.HasPrefix(upper, "YOUR-")
}
