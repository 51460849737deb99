// Package notify surfaces short user-facing messages as desktop
// notifications via beeep.
package notify

import "github.com/gen2brain/beeep"

// Notifier sends desktop notifications. A disabled Notifier is silent.
type Notifier struct {
	enabled bool
}

// New creates a Notifier.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Notify shows a desktop notification. Failures are swallowed; a toast
// that cannot be shown must never break a dictation session.
func (n *Notifier) Notify(title, message string) {
	if n == nil || !n.enabled {
		return
	}
	_ = beeep.Notify(title, message, "")
}
