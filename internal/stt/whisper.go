package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

// WhisperProvider runs whisper.cpp in-process. It has no network failure
// mode but is an order of magnitude slower than the cloud providers, so
// callers must not assume cloud latency.
type WhisperProvider struct {
	cfg config.WhisperConfig

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisper creates a local whisper provider. The model is loaded
// lazily on the first call so a missing file surfaces as
// ErrModelNotLoaded at use time, not at startup.
func NewWhisper(cfg config.WhisperConfig) *WhisperProvider {
	return &WhisperProvider{cfg: cfg}
}

func (p *WhisperProvider) Name() string { return "whisper" }

// Close releases the loaded model, if any.
func (p *WhisperProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		err := p.model.Close()
		p.model = nil
		return err
	}
	return nil
}

// load loads the model weights once. Safe to call repeatedly; a failed
// load is retried on the next call.
func (p *WhisperProvider) load() (whisper.Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		return p.model, nil
	}

	if _, err := os.Stat(p.cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s (run with --download-model to fetch it)", ErrModelNotLoaded, p.cfg.ModelPath)
	}

	model, err := whisper.New(p.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", ErrModelNotLoaded, p.cfg.ModelPath, err)
	}
	p.model = model
	return model, nil
}

func (p *WhisperProvider) Transcribe(ctx context.Context, clip *audio.Clip) (Transcript, error) {
	model, err := p.load()
	if err != nil {
		return Transcript{}, err
	}

	wctx, err := model.NewContext()
	if err != nil {
		return Transcript{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if p.cfg.Language != "" && p.cfg.Language != "auto" {
		if err := wctx.SetLanguage(p.cfg.Language); err != nil {
			return Transcript{}, fmt.Errorf("whisper: set language %q: %w", p.cfg.Language, err)
		}
	}

	if err := wctx.Process(clip.Samples, nil, nil, nil); err != nil {
		return Transcript{}, fmt.Errorf("whisper: process: %w", err)
	}

	var segments []string
	for {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Transcript{}, fmt.Errorf("whisper: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return Transcript{
		Text:     strings.TrimSpace(strings.Join(segments, " ")),
		Language: p.cfg.Language,
		Provider: p.Name(),
	}, nil
}
