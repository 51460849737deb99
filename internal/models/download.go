// Package models downloads whisper model weights for the local
// transcription backend.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const (
	modelURLTemplate = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/%s"
	defaultModelName = "ggml-base.bin"
)

// DownloadWhisper downloads the ggml model named by destPath's base
// (e.g. ggml-base.bin) from HuggingFace into destPath. Progress is
// printed to stdout. Already-present files are left alone.
func DownloadWhisper(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  Whisper model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return nil
	}

	name := filepath.Base(destPath)
	if name == "." || name == string(filepath.Separator) {
		name = defaultModelName
	}
	url := fmt.Sprintf(modelURLTemplate, name)

	fmt.Printf("  Downloading whisper model from HuggingFace...\n")
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URL template is a compile-time constant
	if err != nil {
		return fmt.Errorf("downloading whisper model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  name,
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	return nil
}

// progressWriter prints download progress to stdout as data flows through.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
	lastPct int
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)

	if pw.total > 0 {
		pct := int(pw.written * 100 / pw.total)
		if pct != pw.lastPct {
			fmt.Printf("\r  %s: %d%% (%.1f/%.1f MB)", pw.label, pct,
				float64(pw.written)/(1024*1024), float64(pw.total)/(1024*1024))
			pw.lastPct = pct
		}
	}

	return n, err
}
