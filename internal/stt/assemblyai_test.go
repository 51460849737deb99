package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

// newTestAssemblyAI points a provider at a test server with fast polling.
func newTestAssemblyAI(t *testing.T, handler http.Handler) *AssemblyAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewAssemblyAI(config.AssemblyAIConfig{APIKey: "test-key", Language: "hu"})
	p.baseURL = srv.URL
	p.pollDelay = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestAssemblyAITranscribe(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "test-key" {
			t.Errorf("upload authorization = %q, want test-key", r.Header.Get("authorization"))
		}
		json.NewEncoder(w).Encode(aaiUploadResponse{UploadURL: "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		var req aaiTranscriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding transcript request: %v", err)
		}
		if req.AudioURL != "https://cdn.example/audio" {
			t.Errorf("AudioURL = %q", req.AudioURL)
		}
		if req.LanguageCode != "hu" {
			t.Errorf("LanguageCode = %q, want hu", req.LanguageCode)
		}
		if !req.Punctuate || !req.FormatText {
			t.Error("Punctuate and FormatText should be set")
		}
		json.NewEncoder(w).Encode(aaiTranscriptResponse{ID: "tr-1", Status: "queued"})
	})
	mux.HandleFunc("GET /transcript/tr-1", func(w http.ResponseWriter, r *http.Request) {
		conf := 0.93
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(aaiTranscriptResponse{ID: "tr-1", Status: "processing"})
			return
		}
		json.NewEncoder(w).Encode(aaiTranscriptResponse{
			ID:         "tr-1",
			Status:     "completed",
			Text:       "hello world",
			Confidence: &conf,
		})
	})

	p := newTestAssemblyAI(t, mux)
	tr, err := p.Transcribe(context.Background(), testClip())
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if tr.Text != "hello world" {
		t.Errorf("Text = %q, want %q", tr.Text, "hello world")
	}
	if tr.Provider != "assemblyai" {
		t.Errorf("Provider = %q, want assemblyai", tr.Provider)
	}
	if tr.Confidence != 0.93 {
		t.Errorf("Confidence = %v, want 0.93", tr.Confidence)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestAssemblyAITranscriptError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aaiUploadResponse{UploadURL: "https://cdn.example/audio"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aaiTranscriptResponse{ID: "tr-2", Status: "queued"})
	})
	mux.HandleFunc("GET /transcript/tr-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(aaiTranscriptResponse{ID: "tr-2", Status: "error", Error: "unsupported audio"})
	})

	p := newTestAssemblyAI(t, mux)
	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrProviderRejected) {
		t.Errorf("Transcribe() error = %v, want ErrProviderRejected", err)
	}
}

func TestAssemblyAIUnauthorized(t *testing.T) {
	p := newTestAssemblyAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))

	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Errorf("Transcribe() error = %v, want ErrCredentialsMissing", err)
	}
}

func TestAssemblyAIRateLimited(t *testing.T) {
	p := newTestAssemblyAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))

	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Transcribe() error = %v, want ErrRateLimited", err)
	}
}

func TestAssemblyAIServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections

	p := NewAssemblyAI(config.AssemblyAIConfig{APIKey: "test-key"})
	p.baseURL = srv.URL
	p.pollDelay = func(int) time.Duration { return time.Millisecond }

	_, err := p.Transcribe(context.Background(), testClip())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Transcribe() error = %v, want ErrNetwork", err)
	}
}
