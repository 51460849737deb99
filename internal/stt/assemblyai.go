package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

// assemblyAIBaseURL is AssemblyAI's REST API root.
const assemblyAIBaseURL = "https://api.assemblyai.com/v2"

// AssemblyAIProvider transcribes audio through AssemblyAI's REST API:
// upload the clip, create a transcript job, poll until it completes.
type AssemblyAIProvider struct {
	cfg     config.AssemblyAIConfig
	baseURL string
	client  *http.Client

	// pollDelay returns the sleep before poll n (0-based). Overridable
	// in tests.
	pollDelay func(n int) time.Duration
}

// NewAssemblyAI creates an AssemblyAI provider. The API key is not
// checked here; a missing key surfaces as ErrCredentialsMissing on the
// first call.
func NewAssemblyAI(cfg config.AssemblyAIConfig) *AssemblyAIProvider {
	return &AssemblyAIProvider{
		cfg:       cfg,
		baseURL:   assemblyAIBaseURL,
		client:    &http.Client{Timeout: 60 * time.Second},
		pollDelay: adaptivePollDelay,
	}
}

// adaptivePollDelay starts fast and slows down: 0.5s for the first three
// polls, 1s for the next seven, then 2s.
func adaptivePollDelay(n int) time.Duration {
	switch {
	case n < 3:
		return 500 * time.Millisecond
	case n < 10:
		return time.Second
	default:
		return 2 * time.Second
	}
}

func (p *AssemblyAIProvider) Name() string { return "assemblyai" }

func (p *AssemblyAIProvider) Close() error { return nil }

type aaiUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type aaiTranscriptRequest struct {
	AudioURL     string   `json:"audio_url"`
	LanguageCode string   `json:"language_code,omitempty"`
	SpeechModels []string `json:"speech_models,omitempty"`
	Punctuate    bool     `json:"punctuate"`
	FormatText   bool     `json:"format_text"`
}

type aaiTranscriptResponse struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

func (p *AssemblyAIProvider) Transcribe(ctx context.Context, clip *audio.Clip) (Transcript, error) {
	if missingKey(p.cfg.APIKey) {
		return Transcript{}, fmt.Errorf("%w: set stt.assemblyai.api_key or ASSEMBLYAI_API_KEY", ErrCredentialsMissing)
	}

	wavData, err := clip.WAV()
	if err != nil {
		return Transcript{}, err
	}

	audioURL, err := p.upload(ctx, wavData)
	if err != nil {
		return Transcript{}, err
	}

	id, err := p.createTranscript(ctx, audioURL)
	if err != nil {
		return Transcript{}, err
	}

	return p.poll(ctx, id)
}

// upload pushes the raw audio and returns the temporary audio URL.
func (p *AssemblyAIProvider) upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: assemblyai: %v", ErrNetwork, err)
	}
	req.Header.Set("authorization", p.cfg.APIKey)
	req.Header.Set("content-type", "application/octet-stream")

	var resp aaiUploadResponse
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	return resp.UploadURL, nil
}

// createTranscript submits a transcription job and returns its id.
func (p *AssemblyAIProvider) createTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(aaiTranscriptRequest{
		AudioURL:     audioURL,
		LanguageCode: p.cfg.Language,
		SpeechModels: []string{"universal-2"},
		Punctuate:    true,
		FormatText:   true,
	})
	if err != nil {
		return "", fmt.Errorf("assemblyai: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: assemblyai: %v", ErrNetwork, err)
	}
	req.Header.Set("authorization", p.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	var resp aaiTranscriptResponse
	if err := p.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// poll waits for the transcript job to finish.
func (p *AssemblyAIProvider) poll(ctx context.Context, id string) (Transcript, error) {
	for n := 0; ; n++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return Transcript{}, fmt.Errorf("%w: assemblyai: %v", ErrNetwork, err)
		}
		req.Header.Set("authorization", p.cfg.APIKey)

		var resp aaiTranscriptResponse
		if err := p.do(req, &resp); err != nil {
			return Transcript{}, err
		}

		switch resp.Status {
		case "completed":
			tr := Transcript{
				Text:     resp.Text,
				Language: p.cfg.Language,
				Provider: p.Name(),
			}
			if resp.Confidence != nil {
				tr.Confidence = *resp.Confidence
			}
			return tr, nil
		case "error":
			return Transcript{}, fmt.Errorf("%w: assemblyai: %s", ErrProviderRejected, resp.Error)
		}

		select {
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		case <-time.After(p.pollDelay(n)):
		}
	}
}

// do executes a request and decodes the JSON response, mapping HTTP
// failures onto the package failure classes.
func (p *AssemblyAIProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: assemblyai: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: assemblyai: HTTP %d: %s", classifyHTTPStatus(resp.StatusCode), resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: assemblyai: decoding response: %v", ErrProviderRejected, err)
	}
	return nil
}
