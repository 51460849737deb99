// Package session coordinates one hotkey gesture from microphone to
// injected text: Recording -> Transcribing -> Refining -> Injecting.
// At most one session is active process-wide; gestures arriving while
// busy are dropped, not queued.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kreativoldal/kreativ-diktalo/internal/audio"
	"github.com/kreativoldal/kreativ-diktalo/internal/history"
	"github.com/kreativoldal/kreativ-diktalo/internal/inject"
	"github.com/kreativoldal/kreativ-diktalo/internal/refine"
	"github.com/kreativoldal/kreativ-diktalo/internal/stt"
)

// State is the session lifecycle position.
type State int32

const (
	Idle State = iota
	Recording
	Transcribing
	Refining
	Injecting
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Refining:
		return "refining"
	case Injecting:
		return "injecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode is the gesture kind.
type Mode int

const (
	// ModeDictation records free speech and inserts it at the caret.
	ModeDictation Mode = iota
	// ModeCommand records a spoken instruction and applies it to the
	// text selected when the gesture began.
	ModeCommand
)

func (m Mode) String() string {
	if m == ModeCommand {
		return "command"
	}
	return "dictation"
}

// Recorder owns the microphone for the Recording phase.
type Recorder interface {
	Start() error
	Stop() *audio.Clip
	IsRecording() bool
}

// Refiner cleans or transforms text through the local LLM runtime.
type Refiner interface {
	Refine(ctx context.Context, req refine.Request) (string, error)
}

// Injector delivers final text into the focused application.
type Injector interface {
	Inject(text string, mode inject.Mode) error
	ReadSelection() (string, error)
}

// History receives one entry per completed session.
type History interface {
	Append(e history.Entry) error
}

// Notifier surfaces short user-facing messages.
type Notifier interface {
	Notify(title, message string)
}

// Options holds session tunables.
type Options struct {
	// MinClipDuration is the accidental-tap floor: shorter clips are
	// discarded without a provider call.
	MinClipDuration time.Duration
	// ErrorRecovery is how long a failed session waits before returning
	// to idle on its own. 0 disables the timer.
	ErrorRecovery time.Duration
	// GlobalCapture mirrors the hotkey listener's capability probe.
	// When false the manager warns once that hotkeys only work while
	// the app itself is focused.
	GlobalCapture bool
}

// Manager runs the session state machine. All gesture handlers are safe
// to call from the hotkey event loop; the transcribe/refine/inject
// pipeline runs on its own goroutine so the next gesture is observed
// (and dropped) without waiting.
type Manager struct {
	log      *zap.Logger
	recorder Recorder
	provider stt.Provider
	refiner  Refiner // nil disables refinement
	injector Injector
	hist     History  // nil disables history
	notifier Notifier // nil disables notifications
	opts     Options

	state  atomic.Int32
	seq    atomic.Uint64 // gesture id generator
	active atomic.Uint64 // id owning the current non-idle state, 0 when idle

	mu        sync.Mutex // guards gesture bookkeeping below
	mode      Mode
	selection string
	failTimer *time.Timer

	wg sync.WaitGroup
}

// New creates a session manager.
func New(log *zap.Logger, rec Recorder, provider stt.Provider, refiner Refiner, inj Injector, hist History, notifier Notifier, opts Options) *Manager {
	m := &Manager{
		log:      log,
		recorder: rec,
		provider: provider,
		refiner:  refiner,
		injector: inj,
		hist:     hist,
		notifier: notifier,
		opts:     opts,
	}
	if !opts.GlobalCapture {
		log.Warn("global key capture unavailable, hotkeys work only while this app is focused")
		m.notify("Kreatív Diktáló", "Global hotkeys unavailable: dictation works only while the app is focused")
	}
	return m
}

// State returns the current session state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// OnDictationDown starts a dictation gesture.
func (m *Manager) OnDictationDown() { m.startGesture(ModeDictation) }

// OnDictationUp ends a dictation gesture.
func (m *Manager) OnDictationUp() { m.stopGesture() }

// OnCommandDown starts a command gesture. The current selection is
// captured before recording begins, because focus changes during
// recording can destroy it.
func (m *Manager) OnCommandDown() { m.startGesture(ModeCommand) }

// OnCommandUp ends a command gesture.
func (m *Manager) OnCommandUp() { m.stopGesture() }

// Acknowledge returns a failed session to idle.
func (m *Manager) Acknowledge() {
	if m.transition(Failed, Idle) {
		m.active.Store(0)
		m.stopFailTimer()
		m.log.Debug("failure acknowledged")
	}
}

// Cancel aborts the in-flight session, whatever phase it is in. Results
// of provider calls already underway are discarded when they arrive.
func (m *Manager) Cancel() {
	st := m.State()
	if st == Idle {
		return
	}
	m.active.Store(0)
	if m.recorder.IsRecording() {
		m.recorder.Stop()
	}
	m.state.Store(int32(Idle))
	m.stopFailTimer()
	m.log.Info("session cancelled", zap.Stringer("was", st))
}

// Close waits for any in-flight pipeline to finish.
func (m *Manager) Close() {
	m.wg.Wait()
	m.stopFailTimer()
}

// startGesture moves Idle -> Recording for a new gesture. The CAS on the
// state token is the single choke point enforcing at-most-one active
// session: a gesture that loses the race is dropped, never queued.
func (m *Manager) startGesture(mode Mode) {
	// A gesture after a failure acknowledges it first.
	if m.transition(Failed, Idle) {
		m.active.Store(0)
		m.stopFailTimer()
	}

	if !m.transition(Idle, Recording) {
		m.log.Debug("gesture dropped, session busy", zap.Stringer("state", m.State()))
		m.notify("Kreatív Diktáló", "Busy with the previous dictation")
		return
	}

	id := m.seq.Add(1)
	m.active.Store(id)

	var selection string
	if mode == ModeCommand {
		sel, err := m.injector.ReadSelection()
		if err != nil {
			m.fail(id, err)
			return
		}
		if sel == "" {
			m.log.Info("command gesture without a selection, ignoring")
			m.notify("Kreatív Diktáló", "Select some text first, then hold the command hotkey")
			m.reset(Recording)
			return
		}
		selection = sel
	}

	m.mu.Lock()
	m.mode = mode
	m.selection = selection
	m.mu.Unlock()

	if err := m.recorder.Start(); err != nil {
		m.fail(id, err)
		return
	}
	m.log.Info("recording", zap.Uint64("session", id), zap.Stringer("mode", mode))
}

// stopGesture moves Recording -> Transcribing and hands the clip to the
// async pipeline, or discards accidental taps.
func (m *Manager) stopGesture() {
	if m.State() != Recording {
		return // release after cancel or failure, nothing to do
	}

	clip := m.recorder.Stop()
	id := m.active.Load()

	if clip == nil {
		m.reset(Recording)
		return
	}
	if clip.Duration() < m.opts.MinClipDuration {
		m.log.Info("clip too short, discarding",
			zap.Duration("duration", clip.Duration()),
			zap.Duration("floor", m.opts.MinClipDuration))
		m.reset(Recording)
		return
	}

	if !m.transition(Recording, Transcribing) {
		return // cancelled between Stop and here
	}

	m.mu.Lock()
	mode := m.mode
	selection := m.selection
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.pipeline(id, mode, selection, clip)
	}()
}

// pipeline runs the asynchronous half of a session. Every phase change
// re-checks the gesture id so a cancelled session's late results are
// dropped on the floor.
func (m *Manager) pipeline(id uint64, mode Mode, selection string, clip *audio.Clip) {
	ctx := context.Background()

	start := time.Now()
	tr, err := m.provider.Transcribe(ctx, clip)
	clip = nil // the clip is never retained past the provider call
	if m.stale(id) {
		return
	}
	if err != nil {
		m.fail(id, err)
		return
	}
	m.log.Info("transcribed",
		zap.Uint64("session", id),
		zap.String("provider", tr.Provider),
		zap.Duration("took", time.Since(start)),
		zap.Int("chars", len(tr.Text)))

	if tr.Text == "" {
		m.log.Info("no speech detected", zap.Uint64("session", id))
		m.reset(Transcribing)
		return
	}

	if !m.transition(Transcribing, Refining) {
		return
	}

	final, err := m.refineStep(ctx, mode, selection, tr.Text)
	if m.stale(id) {
		return
	}
	if err != nil {
		// Command mode never injects an un-transformed selection.
		m.fail(id, err)
		return
	}

	if !m.transition(Refining, Injecting) {
		return
	}

	injectMode := inject.ModeInsert
	if mode == ModeCommand {
		injectMode = inject.ModeReplace
	}
	if err := m.injector.Inject(final, injectMode); err != nil {
		m.fail(id, err)
		return
	}

	if m.hist != nil {
		if err := m.hist.Append(history.Entry{
			Mode:     mode.String(),
			Text:     final,
			Provider: tr.Provider,
		}); err != nil {
			m.log.Warn("history append failed", zap.Error(err))
		}
	}

	if m.transition(Injecting, Idle) {
		m.active.Store(0)
	}
	m.log.Info("session complete", zap.Uint64("session", id), zap.Stringer("mode", mode))
}

// refineStep produces the final text for injection. Dictation degrades
// to the raw transcript when the refiner fails; command mode propagates
// the failure because the transformation is the whole point.
func (m *Manager) refineStep(ctx context.Context, mode Mode, selection, transcript string) (string, error) {
	if mode == ModeCommand {
		if m.refiner == nil {
			return "", errors.New("session: command mode requires the refiner, but it is disabled")
		}
		return m.refiner.Refine(ctx, refine.Request{
			Mode:        refine.ModeCommand,
			Text:        selection,
			Instruction: transcript,
			Selection:   selection,
		})
	}

	if m.refiner == nil {
		return transcript, nil
	}
	out, err := m.refiner.Refine(ctx, refine.Request{
		Mode: refine.ModeDictation,
		Text: transcript,
	})
	if err != nil {
		m.log.Warn("refiner failed, injecting raw transcript", zap.Error(err))
		return transcript, nil
	}
	return out, nil
}

// fail moves the session to Failed and surfaces a readable cause. The
// failure auto-acknowledges after the configured recovery delay so the
// machine can never wedge outside Idle.
func (m *Manager) fail(id uint64, err error) {
	if m.stale(id) {
		return
	}
	m.state.Store(int32(Failed))
	m.log.Error("session failed", zap.Uint64("session", id), zap.Error(err))
	m.notify("Kreatív Diktáló", describe(err))

	if m.opts.ErrorRecovery > 0 {
		m.mu.Lock()
		if m.failTimer != nil {
			m.failTimer.Stop()
		}
		m.failTimer = time.AfterFunc(m.opts.ErrorRecovery, m.Acknowledge)
		m.mu.Unlock()
	}
}

// reset returns from an early phase straight to Idle (discard outcomes,
// not failures).
func (m *Manager) reset(from State) {
	if m.transition(from, Idle) {
		m.active.Store(0)
	}
}

func (m *Manager) transition(from, to State) bool {
	return m.state.CompareAndSwap(int32(from), int32(to))
}

// stale reports whether the gesture no longer owns the session.
func (m *Manager) stale(id uint64) bool {
	return m.active.Load() != id
}

func (m *Manager) stopFailTimer() {
	m.mu.Lock()
	if m.failTimer != nil {
		m.failTimer.Stop()
		m.failTimer = nil
	}
	m.mu.Unlock()
}

func (m *Manager) notify(title, message string) {
	if m.notifier != nil {
		m.notifier.Notify(title, message)
	}
}

// describe maps failure classes to short user-facing messages.
func describe(err error) string {
	switch {
	case errors.Is(err, stt.ErrCredentialsMissing):
		return "Missing API key for the selected speech provider"
	case errors.Is(err, stt.ErrRateLimited):
		return "Speech provider rate limit exceeded, try again shortly"
	case errors.Is(err, stt.ErrNetwork):
		return "Network error talking to the speech provider"
	case errors.Is(err, stt.ErrProviderRejected):
		return "Speech provider rejected the recording"
	case errors.Is(err, stt.ErrModelNotLoaded):
		return "Whisper model not found, run with --download-model"
	case errors.Is(err, refine.ErrUnavailable):
		return "Ollama is not reachable, is it running?"
	case errors.Is(err, refine.ErrTimeout):
		return "Ollama timed out"
	case errors.Is(err, inject.ErrNoFocusTarget):
		return "No editable window is focused"
	case errors.Is(err, audio.ErrDevice):
		return "Microphone unavailable, check permissions"
	default:
		return err.Error()
	}
}
