package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

// groqBaseURL is Groq's OpenAI-compatible API root.
const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider transcribes audio through Groq's hosted whisper models.
type GroqProvider struct {
	cfg     config.GroqConfig
	baseURL string

	once   sync.Once
	client *openai.Client
}

// NewGroq creates a Groq provider. The API key is not checked here; a
// missing key surfaces as ErrCredentialsMissing on the first call.
func NewGroq(cfg config.GroqConfig) *GroqProvider {
	return &GroqProvider{cfg: cfg, baseURL: groqBaseURL}
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) Close() error { return nil }

func (p *GroqProvider) Transcribe(ctx context.Context, clip *audio.Clip) (Transcript, error) {
	if missingKey(p.cfg.APIKey) {
		return Transcript{}, fmt.Errorf("%w: set stt.groq.api_key or GROQ_API_KEY", ErrCredentialsMissing)
	}

	p.once.Do(func() {
		clientCfg := openai.DefaultConfig(p.cfg.APIKey)
		clientCfg.BaseURL = p.baseURL
		p.client = openai.NewClientWithConfig(clientCfg)
	})

	wavData, err := clip.WAV()
	if err != nil {
		return Transcript{}, err
	}

	req := openai.AudioRequest{
		Model:    p.cfg.Model,
		FilePath: "clip.wav",
		Reader:   bytes.NewReader(wavData),
		Language: p.cfg.Language,
	}

	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		return Transcript{}, classifyGroqError(err)
	}

	return Transcript{
		Text:     resp.Text,
		Language: p.cfg.Language,
		Provider: p.Name(),
	}, nil
}

// classifyGroqError maps go-openai errors onto the package failure classes.
func classifyGroqError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: groq: %v", classifyHTTPStatus(apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: groq: %v", classifyHTTPStatus(reqErr.HTTPStatusCode), err)
	}
	// Transport-level failure (DNS, refused connection, timeout).
	return fmt.Errorf("%w: groq: %v", ErrNetwork, err)
}

// classifyHTTPStatus maps an HTTP status code onto a failure class.
func classifyHTTPStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrCredentialsMissing
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrNetwork
	default:
		return ErrProviderRejected
	}
}
