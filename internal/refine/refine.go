// Package refine cleans raw transcripts and applies spoken commands to
// selected text through a locally hosted Ollama runtime.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

var (
	// ErrUnavailable indicates the Ollama runtime is not reachable.
	ErrUnavailable = errors.New("refine: runtime unavailable")
	// ErrTimeout indicates the runtime did not answer within the
	// configured deadline.
	ErrTimeout = errors.New("refine: runtime timed out")
	// ErrImplausibleOutput indicates the model returned something far
	// shorter than the input, which almost always means it answered the
	// prompt instead of transforming the text.
	ErrImplausibleOutput = errors.New("refine: implausibly short output")
)

// Mode selects the refinement behavior.
type Mode string

const (
	// ModeDictation cleans a raw transcript: filler words out,
	// punctuation fixed, meaning preserved.
	ModeDictation Mode = "dictation"
	// ModeCommand applies a spoken instruction to selected text.
	ModeCommand Mode = "command"
)

// Request describes one refinement call.
type Request struct {
	Mode        Mode
	Text        string // input text (transcript, or the selection in command mode)
	Instruction string // command mode only
	Selection   string // command mode only
}

// Validate checks the mode-specific invariants.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeDictation:
		return nil
	case ModeCommand:
		if strings.TrimSpace(r.Instruction) == "" {
			return fmt.Errorf("refine: command mode requires an instruction")
		}
		if strings.TrimSpace(r.Selection) == "" {
			return fmt.Errorf("refine: command mode requires a selection")
		}
		return nil
	default:
		return fmt.Errorf("refine: unknown mode %q", r.Mode)
	}
}

// Client talks to an Ollama runtime over its generate API.
type Client struct {
	host        string
	model       string
	temperature float64
	timeout     time.Duration
	client      *http.Client
}

// NewClient creates a refiner client for the configured runtime. The
// runtime is not probed here; reachability surfaces on the first call.
func NewClient(cfg config.OllamaConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &Client{
		host:        strings.TrimRight(cfg.Host, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Refine sends the request to the runtime and returns the generated
// text. Dictation output is sanity-checked against the input length.
func (c *Client) Refine(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	prompt := buildPrompt(req)

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.temperature,
			"top_p":       0.9,
			"top_k":       40,
		},
	})
	if err != nil {
		return "", fmt.Errorf("refine: encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	out := strings.TrimSpace(gen.Response)
	if out == "" {
		return "", fmt.Errorf("%w: empty response", ErrImplausibleOutput)
	}

	// A cleaned transcript dramatically shorter than its input means the
	// model dropped content rather than cleaning it.
	if req.Mode == ModeDictation && len(out) < len(req.Text)*30/100 {
		return "", fmt.Errorf("%w: %d chars from %d input", ErrImplausibleOutput, len(out), len(req.Text))
	}

	return out, nil
}

// buildPrompt assembles the per-mode prompt.
func buildPrompt(req Request) string {
	if req.Mode == ModeCommand {
		return fmt.Sprintf(`You are a text editing assistant. Modify the given text according to the user's instruction.

INSTRUCTION: %s

ORIGINAL TEXT:
%s

MODIFIED TEXT (write only the text, nothing else):`, req.Instruction, req.Selection)
	}

	return fmt.Sprintf(`Correct this text. Remove filler words (um, uh, like), fix spelling and punctuation. Reply with ONLY the corrected text, nothing else.

Text: %s

Corrected:`, req.Text)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
