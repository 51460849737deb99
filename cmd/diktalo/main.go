// Command diktalo is a push-to-talk dictation assistant: hold the
// dictation hotkey to speak, release to transcribe and inject the text
// at the cursor. Hold the command hotkey over a selection to transform
// it with a spoken instruction.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/config"
	"github.com/kreativoldal/kreativ-diktalo/internal/history"
	"github.com/kreativoldal/kreativ-diktalo/internal/hotkey"
	"github.com/kreativoldal/kreativ-diktalo/internal/inject"
	"github.com/kreativoldal/kreativ-diktalo/internal/logging"
	"github.com/kreativoldal/kreativ-diktalo/internal/models"
	"github.com/kreativoldal/kreativ-diktalo/internal/notify"
	"github.com/kreativoldal/kreativ-diktalo/internal/refine"
	"github.com/kreativoldal/kreativ-diktalo/internal/session"
	"github.com/kreativoldal/kreativ-diktalo/internal/stt"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/kreativ-diktalo/config.yaml)")
	downloadModel := flag.Bool("download-model", false, "download the whisper model and exit")
	flag.Parse()

	// API keys may live in a .env next to the binary.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	if *downloadModel {
		if err := models.DownloadWhisper(cfg.STT.Whisper.ModelPath); err != nil {
			log.Fatalf("model download: %v", err)
		}
		return
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	printBanner(cfg)

	provider, err := stt.New(&cfg.STT)
	if err != nil {
		logger.Fatal("speech provider", zap.Error(err))
	}
	defer provider.Close()
	logger.Info("speech provider ready", zap.String("provider", provider.Name()))

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		logger.Fatal("audio recorder (is microphone access granted?)", zap.Error(err))
	}
	defer recorder.Close()
	logger.Info("audio recorder ready")

	injector := inject.NewInjector(cfg.Inject.Method)
	logger.Info("text injector ready", zap.String("method", cfg.Inject.Method))

	var refiner session.Refiner
	if cfg.Ollama.Enabled {
		refiner = refine.NewClient(cfg.Ollama)
		logger.Info("refiner ready", zap.String("host", cfg.Ollama.Host), zap.String("model", cfg.Ollama.Model))
	} else {
		logger.Info("refiner disabled, raw transcripts will be injected")
	}

	var hist session.History
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Fatal("history store", zap.Error(err))
		}
		defer store.Close()
		hist = store
		logger.Info("history store ready", zap.String("path", cfg.History.Path))
	}

	notifier := notify.New(cfg.Notify.Enabled)

	listener := hotkey.NewListener(cfg.Hotkeys.Dictation, cfg.Hotkeys.Command, cfg.Hotkeys.Cancel)
	caps := listener.Capabilities()
	logger.Info("hotkey listener ready",
		zap.String("dictation", strings.Join(cfg.Hotkeys.Dictation, "+")),
		zap.String("command", strings.Join(cfg.Hotkeys.Command, "+")),
		zap.Bool("global_capture", caps.GlobalCapture))

	mgr := session.New(logger, recorder, provider, refiner, injector, hist, notifier, session.Options{
		MinClipDuration: time.Duration(cfg.Audio.MinClipMS) * time.Millisecond,
		ErrorRecovery:   time.Duration(cfg.Session.ErrorRecoverySeconds) * time.Second,
		GlobalCapture:   caps.GlobalCapture,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go listener.Start()

	logger.Info("ready",
		zap.String("hold_to_dictate", strings.Join(cfg.Hotkeys.Dictation, "+")),
		zap.String("hold_for_command", strings.Join(cfg.Hotkeys.Command, "+")))

	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				logger.Info("hotkey listener stopped")
				mgr.Close()
				return
			}
			switch ev.Type {
			case hotkey.DictationDown:
				mgr.OnDictationDown()
			case hotkey.DictationUp:
				mgr.OnDictationUp()
			case hotkey.CommandDown:
				mgr.OnCommandDown()
			case hotkey.CommandUp:
				mgr.OnCommandUp()
			case hotkey.CancelTap:
				mgr.Cancel()
			}

		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			mgr.Cancel()
			recorder.Close()
			provider.Close()
			logger.Sync()
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== kreativ-diktalo ===")
	fmt.Printf("  Provider:  %s\n", cfg.STT.Provider)
	fmt.Printf("  Dictation: %s\n", strings.Join(cfg.Hotkeys.Dictation, "+"))
	fmt.Printf("  Command:   %s\n", strings.Join(cfg.Hotkeys.Command, "+"))
	fmt.Printf("  Audio:     %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Inject:    %s\n", cfg.Inject.Method)
	fmt.Printf("  Refiner:   %s\n", refinerSummary(cfg))
	fmt.Printf("  Log:       %s\n", cfg.Log.Level)
	fmt.Println("=======================")
}

func refinerSummary(cfg *config.Config) string {
	if !cfg.Ollama.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s @ %s", cfg.Ollama.Model, cfg.Ollama.Host)
}
