package inject

import (
	"errors"
	"strings"
	"testing"
)

// fakeClipboard is an in-memory clipboard.
type fakeClipboard struct {
	content string
	history []string // every value ever written
	readErr error
}

func (f *fakeClipboard) Read() (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.content, nil
}

func (f *fakeClipboard) Write(text string) error {
	f.content = text
	f.history = append(f.history, text)
	return nil
}

// fakeKeyboard records taps and optionally simulates the OS servicing
// a copy chord by writing the "selection" into the clipboard.
type fakeKeyboard struct {
	taps      []string
	typed     []string
	clip      *fakeClipboard
	selection string
	tapErr    error
}

func (f *fakeKeyboard) Type(text string) { f.typed = append(f.typed, text) }

func (f *fakeKeyboard) Tap(key string, mods ...string) error {
	if f.tapErr != nil {
		return f.tapErr
	}
	f.taps = append(f.taps, strings.Join(append(mods, key), "+"))
	if key == "c" && f.clip != nil {
		f.clip.content = f.selection
	}
	return nil
}

func newTestInjector(method string, clip *fakeClipboard, kb *fakeKeyboard) *Injector {
	return &Injector{
		method:   method,
		clip:     clip,
		kb:       kb,
		hasFocus: func() bool { return true },
	}
}

func TestInjectPasteRestoresClipboard(t *testing.T) {
	clip := &fakeClipboard{content: "previous contents"}
	kb := &fakeKeyboard{}
	inj := newTestInjector("paste", clip, kb)

	if err := inj.Inject("hello world", ModeInsert); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	if len(kb.taps) != 1 || !strings.HasSuffix(kb.taps[0], "+v") {
		t.Errorf("taps = %v, want one paste chord", kb.taps)
	}
	// The text passed through the clipboard before the paste chord...
	found := false
	for _, w := range clip.history {
		if w == "hello world" {
			found = true
		}
	}
	if !found {
		t.Error("injected text never reached the clipboard")
	}
	// ...and the prior contents are back afterwards.
	if clip.content != "previous contents" {
		t.Errorf("clipboard = %q, want prior contents restored", clip.content)
	}
}

func TestInjectPasteRestoresClipboardOnChordFailure(t *testing.T) {
	clip := &fakeClipboard{content: "previous contents"}
	kb := &fakeKeyboard{tapErr: errors.New("no input permission")}
	inj := newTestInjector("paste", clip, kb)

	if err := inj.Inject("hello", ModeInsert); err == nil {
		t.Fatal("Inject() should fail when paste chord fails")
	}
	if clip.content != "previous contents" {
		t.Errorf("clipboard = %q, want prior contents restored on failure", clip.content)
	}
}

func TestInjectType(t *testing.T) {
	clip := &fakeClipboard{content: "untouched"}
	kb := &fakeKeyboard{}
	inj := newTestInjector("type", clip, kb)

	if err := inj.Inject("hello world", ModeInsert); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.typed) != 1 || kb.typed[0] != "hello world" {
		t.Errorf("typed = %v, want [hello world]", kb.typed)
	}
	if clip.content != "untouched" {
		t.Errorf("clipboard = %q, type method must not touch it", clip.content)
	}
}

func TestInjectTypeReplaceDeletesSelectionFirst(t *testing.T) {
	kb := &fakeKeyboard{}
	inj := newTestInjector("type", &fakeClipboard{}, kb)

	if err := inj.Inject("new text", ModeReplace); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.taps) != 1 || kb.taps[0] != "delete" {
		t.Errorf("taps = %v, want [delete] before typing", kb.taps)
	}
	if len(kb.typed) != 1 || kb.typed[0] != "new text" {
		t.Errorf("typed = %v", kb.typed)
	}
}

func TestInjectEmptyTextIsNoop(t *testing.T) {
	kb := &fakeKeyboard{}
	clip := &fakeClipboard{content: "keep"}
	inj := newTestInjector("paste", clip, kb)

	if err := inj.Inject("", ModeInsert); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if len(kb.taps) != 0 || len(clip.history) != 0 {
		t.Error("empty text should not touch keyboard or clipboard")
	}
}

func TestInjectNoFocusTarget(t *testing.T) {
	inj := newTestInjector("paste", &fakeClipboard{}, &fakeKeyboard{})
	inj.hasFocus = func() bool { return false }

	err := inj.Inject("hello", ModeInsert)
	if !errors.Is(err, ErrNoFocusTarget) {
		t.Errorf("Inject() error = %v, want ErrNoFocusTarget", err)
	}
}

func TestReadSelection(t *testing.T) {
	clip := &fakeClipboard{content: "old clipboard"}
	kb := &fakeKeyboard{clip: clip, selection: "the cat sat"}
	inj := newTestInjector("paste", clip, kb)

	sel, err := inj.ReadSelection()
	if err != nil {
		t.Fatalf("ReadSelection() error = %v", err)
	}
	if sel != "the cat sat" {
		t.Errorf("ReadSelection() = %q, want %q", sel, "the cat sat")
	}
	if clip.content != "old clipboard" {
		t.Errorf("clipboard = %q, want prior contents restored", clip.content)
	}
}

func TestReadSelectionEmpty(t *testing.T) {
	clip := &fakeClipboard{content: "old clipboard"}
	kb := &fakeKeyboard{clip: clip, selection: ""}
	inj := newTestInjector("paste", clip, kb)

	sel, err := inj.ReadSelection()
	if err != nil {
		t.Fatalf("ReadSelection() error = %v", err)
	}
	if sel != "" {
		t.Errorf("ReadSelection() = %q, want empty (nothing selected)", sel)
	}
	if clip.content != "old clipboard" {
		t.Errorf("clipboard = %q, want prior contents restored", clip.content)
	}
}
