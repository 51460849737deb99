package logging

import (
	"testing"

	"github.com/kreativoldal/kreativ-diktalo/internal/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("New() returned nil logger")
	}
	_ = logger.Sync()
}

func TestNewJSONFormat(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger == nil {
		t.Fatal("New() returned nil logger")
	}
}

func TestNewBadLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loudest", Format: "console"}); err == nil {
		t.Error("New() should fail for an unknown level")
	}
}
