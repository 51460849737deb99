package inject

import (
	"runtime"

	"github.com/go-vgo/robotgo"
)

// robotClipboard is the real system clipboard.
type robotClipboard struct{}

func (robotClipboard) Read() (string, error) { return robotgo.ReadAll() }

func (robotClipboard) Write(text string) error { return robotgo.WriteAll(text) }

// robotKeyboard sends synthetic key input.
type robotKeyboard struct{}

func (robotKeyboard) Type(text string) { robotgo.TypeStr(text) }

func (robotKeyboard) Tap(key string, mods ...string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

// robotHasFocus reports whether some window currently has focus.
func robotHasFocus() bool {
	return robotgo.GetTitle() != ""
}

// pasteModifier returns the modifier key for copy/paste chords.
func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}
