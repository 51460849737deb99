package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Hotkeys HotkeysConfig `yaml:"hotkeys"`
	STT     STTConfig     `yaml:"stt"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	Audio   AudioConfig   `yaml:"audio"`
	Inject  InjectConfig  `yaml:"inject"`
	History HistoryConfig `yaml:"history"`
	Session SessionConfig `yaml:"session"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
}

// HotkeysConfig holds the global key bindings. Dictation and Command are
// hold-to-talk combos; Cancel is optional (empty disables it).
type HotkeysConfig struct {
	Dictation []string `yaml:"dictation"`
	Command   []string `yaml:"command"`
	Cancel    []string `yaml:"cancel"`
}

// STTConfig selects the speech-to-text provider and its settings.
type STTConfig struct {
	Provider   string           `yaml:"provider"` // "groq", "assemblyai", or "whisper"
	Groq       GroqConfig       `yaml:"groq"`
	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
	Whisper    WhisperConfig    `yaml:"whisper"`
	Retry      RetryConfig      `yaml:"retry"`
}

// GroqConfig holds Groq cloud transcription settings.
type GroqConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// AssemblyAIConfig holds AssemblyAI cloud transcription settings.
type AssemblyAIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
}

// WhisperConfig holds local whisper.cpp settings.
type WhisperConfig struct {
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

// RetryConfig bounds retries for transient provider errors.
type RetryConfig struct {
	Attempts    int `yaml:"attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

// OllamaConfig holds settings for the local LLM text refiner.
type OllamaConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Host           string  `yaml:"host"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
	MinClipMS  int    `yaml:"min_clip_ms"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "paste" or "type"
}

// HistoryConfig holds the dictation history store settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SessionConfig holds session state machine tunables.
type SessionConfig struct {
	// ErrorRecoverySeconds is how long a failed session waits before
	// returning to idle on its own. 0 disables the timer.
	ErrorRecoverySeconds int `yaml:"error_recovery_seconds"`
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "kreativ-diktalo")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the default data directory (models, history).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "kreativ-diktalo")
}

// DefaultModelsDir returns the default whisper models directory.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Hotkeys: HotkeysConfig{
			Dictation: []string{"ctrl", "space"},
			Command:   []string{"ctrl", "shift", "space"},
			Cancel:    nil,
		},
		STT: STTConfig{
			Provider: "groq",
			Groq: GroqConfig{
				Model:    "whisper-large-v3",
				Language: "hu",
			},
			AssemblyAI: AssemblyAIConfig{
				Language: "hu",
			},
			Whisper: WhisperConfig{
				ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.bin"),
				Language:  "hu",
			},
			Retry: RetryConfig{
				Attempts:    3,
				BaseDelayMS: 500,
			},
		},
		Ollama: OllamaConfig{
			Enabled:        true,
			Host:           "http://localhost:11434",
			Model:          "llama3.1:8b",
			TimeoutSeconds: 30,
			Temperature:    0.3,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			MinClipMS:  300,
		},
		Inject: InjectConfig{
			Method: "paste",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(DefaultDataDir(), "history.db"),
		},
		Session: SessionConfig{
			ErrorRecoverySeconds: 3,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in path fields is expanded to the user's home
// directory. API keys left empty in the file fall back to the
// GROQ_API_KEY / ASSEMBLYAI_API_KEY environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.STT.Whisper.ModelPath = expandTilde(cfg.STT.Whisper.ModelPath)
	cfg.History.Path = expandTilde(cfg.History.Path)
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv fills credentials from the environment when the file leaves
// them empty.
func (c *Config) applyEnv() {
	if c.STT.Groq.APIKey == "" {
		c.STT.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.STT.AssemblyAI.APIKey == "" {
		c.STT.AssemblyAI.APIKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}
}

// Validate checks the config for structurally invalid values. Provider
// credentials are deliberately not checked here; a missing key surfaces
// as a typed error on the first transcription call instead.
func (c *Config) Validate() error {
	if len(c.Hotkeys.Dictation) == 0 {
		return fmt.Errorf("hotkeys.dictation must not be empty")
	}
	if len(c.Hotkeys.Command) == 0 {
		return fmt.Errorf("hotkeys.command must not be empty")
	}

	switch c.STT.Provider {
	case "groq", "assemblyai", "whisper":
	default:
		return fmt.Errorf("stt.provider must be \"groq\", \"assemblyai\", or \"whisper\", got %q", c.STT.Provider)
	}

	if c.STT.Retry.Attempts < 1 {
		return fmt.Errorf("stt.retry.attempts must be >= 1")
	}
	if c.STT.Retry.BaseDelayMS < 0 {
		return fmt.Errorf("stt.retry.base_delay_ms must be >= 0")
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if c.Audio.MinClipMS < 0 {
		return fmt.Errorf("audio.min_clip_ms must be >= 0")
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if c.Ollama.Enabled {
		if c.Ollama.Host == "" {
			return fmt.Errorf("ollama.host must not be empty when ollama is enabled")
		}
		if c.Ollama.Model == "" {
			return fmt.Errorf("ollama.model must not be empty when ollama is enabled")
		}
		if c.Ollama.TimeoutSeconds <= 0 {
			return fmt.Errorf("ollama.timeout_seconds must be > 0")
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
