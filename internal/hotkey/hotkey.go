// Package hotkey provides a global hotkey listener using gohook. The
// dictation and command bindings are hold-to-talk: key down starts a
// gesture, key up ends it. An optional cancel binding aborts the
// in-flight session.
package hotkey

import (
	"os"
	"runtime"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType identifies a hotkey gesture edge.
type EventType int

const (
	// DictationDown signals the dictation combo was pressed.
	DictationDown EventType = iota
	// DictationUp signals the dictation combo was released.
	DictationUp
	// CommandDown signals the command-mode chord was pressed.
	CommandDown
	// CommandUp signals the command-mode chord was released.
	CommandUp
	// CancelTap signals the cancel binding was pressed.
	CancelTap
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Capabilities reports what the hook can actually observe. Without a
// display session the hook only sees keys while our own window is
// focused; the session layer warns instead of failing hard.
type Capabilities struct {
	GlobalCapture bool
}

// Listener manages the global hotkey bindings and emits gesture events.
type Listener struct {
	dictation []string
	command   []string
	cancel    []string

	dictState   tracker
	cmdState    tracker
	cancelState tracker

	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combos. Keys are
// lowercase names (e.g., ["ctrl", "shift", "space"]). cancel may be
// empty to disable the cancel gesture.
func NewListener(dictation, command, cancel []string) *Listener {
	return &Listener{
		dictation: dictation,
		command:   command,
		cancel:    cancel,
		ch:        make(chan Event, 16),
		done:      make(chan struct{}),
	}
}

// Events returns the channel that receives gesture events.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Capabilities reports whether cross-application capture is active.
func (l *Listener) Capabilities() Capabilities {
	return probeCapabilities()
}

// Start begins listening for the global hotkeys.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.dictation, func(e hook.Event) {
		if l.dictState.down() {
			l.emit(Event{Type: DictationDown})
		}
	})
	hook.Register(hook.KeyUp, l.dictation, func(e hook.Event) {
		if l.dictState.up() {
			l.emit(Event{Type: DictationUp})
		}
	})

	hook.Register(hook.KeyDown, l.command, func(e hook.Event) {
		if l.cmdState.down() {
			l.emit(Event{Type: CommandDown})
		}
	})
	hook.Register(hook.KeyUp, l.command, func(e hook.Event) {
		if l.cmdState.up() {
			l.emit(Event{Type: CommandUp})
		}
	})

	if len(l.cancel) > 0 {
		hook.Register(hook.KeyDown, l.cancel, func(e hook.Event) {
			if l.cancelState.down() {
				l.emit(Event{Type: CancelTap})
			}
		})
		hook.Register(hook.KeyUp, l.cancel, func(e hook.Event) {
			l.cancelState.up()
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit delivers an event without blocking the OS input pipeline.
func (l *Listener) emit(ev Event) {
	select {
	case l.ch <- ev:
	default: // drop if the consumer is behind
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// tracker collapses OS key-repeat into a single down/up pair: a held
// combo fires KeyDown repeatedly, but only the first one counts.
type tracker struct {
	mu      sync.Mutex
	pressed bool
}

// down reports whether this KeyDown is a fresh press.
func (t *tracker) down() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pressed {
		return false
	}
	t.pressed = true
	return true
}

// up reports whether the combo was pressed, and clears the state.
func (t *tracker) up() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pressed {
		return false
	}
	t.pressed = false
	return true
}

// probeCapabilities checks whether the hook can observe input while
// other applications are focused. On Linux the hook rides the display
// server; without one there is nothing global to attach to.
func probeCapabilities() Capabilities {
	switch runtime.GOOS {
	case "linux":
		global := os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
		return Capabilities{GlobalCapture: global}
	default:
		return Capabilities{GlobalCapture: true}
	}
}
