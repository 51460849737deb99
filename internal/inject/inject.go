// Package inject delivers text into the focused application using
// robotgo keystroke simulation or clipboard paste, and reads the
// current selection for command mode.
package inject

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoFocusTarget indicates no editable control is focused. Reported,
// never retried.
var ErrNoFocusTarget = errors.New("inject: no focused window")

// Mode selects how text is delivered.
type Mode int

const (
	// ModeInsert inserts at the current caret position.
	ModeInsert Mode = iota
	// ModeReplace replaces the current selection.
	ModeReplace
)

// Clipboard abstracts the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard abstracts synthetic keyboard input.
type Keyboard interface {
	// Type simulates individual keystrokes for the given text.
	Type(text string)
	// Tap presses a key with optional modifiers.
	Tap(key string, mods ...string) error
}

// Injector types or pastes text into the active application.
type Injector struct {
	method    string // "type" or "paste"
	clip      Clipboard
	kb        Keyboard
	hasFocus  func() bool
	copyDelay time.Duration // wait for the OS to service a copy chord
}

// NewInjector creates an Injector backed by robotgo.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{
		method:    method,
		clip:      robotClipboard{},
		kb:        robotKeyboard{},
		hasFocus:  robotHasFocus,
		copyDelay: 120 * time.Millisecond,
	}
}

// Inject delivers text using the configured method. The clipboard's
// prior contents survive the call on every path.
func (inj *Injector) Inject(text string, mode Mode) error {
	if text == "" {
		return nil
	}
	if !inj.hasFocus() {
		return ErrNoFocusTarget
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text, mode)
	}
}

// typeText simulates individual keystrokes. Slower for long text but
// never touches the clipboard. A replace first deletes the selection.
func (inj *Injector) typeText(text string, mode Mode) error {
	if mode == ModeReplace {
		if err := inj.kb.Tap("delete"); err != nil {
			return fmt.Errorf("inject: delete selection: %w", err)
		}
	}
	inj.kb.Type(text)
	return nil
}

// paste copies text to the clipboard and triggers a paste chord. A
// paste over an active selection replaces it, so insert and replace
// share this path. The previous clipboard contents are restored before
// returning, whether or not the paste succeeds.
func (inj *Injector) paste(text string) (err error) {
	prev, readErr := inj.clip.Read()
	if readErr == nil {
		defer func() {
			if restoreErr := inj.clip.Write(prev); restoreErr != nil && err == nil {
				err = fmt.Errorf("inject: restore clipboard: %w", restoreErr)
			}
		}()
	}

	if err := inj.clip.Write(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := inj.kb.Tap("v", pasteModifier()); err != nil {
		return fmt.Errorf("inject: paste chord: %w", err)
	}

	return nil
}

// ReadSelection returns the currently selected text in the focused
// application by issuing a copy chord and reading the clipboard. The
// clipboard's prior contents are restored before returning. An empty
// string means nothing is selected.
func (inj *Injector) ReadSelection() (sel string, err error) {
	if !inj.hasFocus() {
		return "", ErrNoFocusTarget
	}

	prev, readErr := inj.clip.Read()
	if readErr == nil {
		defer func() {
			if restoreErr := inj.clip.Write(prev); restoreErr != nil && err == nil {
				err = fmt.Errorf("inject: restore clipboard: %w", restoreErr)
			}
		}()
	}

	// Clear first so a no-op copy (nothing selected) reads back empty
	// instead of echoing stale clipboard contents.
	if err := inj.clip.Write(""); err != nil {
		return "", fmt.Errorf("inject: clear clipboard: %w", err)
	}

	if err := inj.kb.Tap("c", pasteModifier()); err != nil {
		return "", fmt.Errorf("inject: copy chord: %w", err)
	}
	time.Sleep(inj.copyDelay)

	sel, selErr := inj.clip.Read()
	if selErr != nil {
		return "", fmt.Errorf("inject: read selection: %w", selErr)
	}
	return sel, nil
}
