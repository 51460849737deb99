// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then hold Ctrl+Space or Ctrl+Shift+Space to see events.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kreativoldal/kreativ-diktalo/internal/hotkey"
)

func main() {
	dictation := []string{"ctrl", "space"}
	command := []string{"ctrl", "shift", "space"}

	fmt.Printf("Dictation: hold %v\n", dictation)
	fmt.Printf("Command:   hold %v\n", command)
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(dictation, command, nil)
	caps := listener.Capabilities()
	if !caps.GlobalCapture {
		fmt.Println("WARNING: global key capture looks unavailable in this environment")
	}

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Type {
			case hotkey.DictationDown:
				fmt.Println(">>> DICTATION DOWN (recording)")
			case hotkey.DictationUp:
				fmt.Println("<<< DICTATION UP   (stopped)")
			case hotkey.CommandDown:
				fmt.Println(">>> COMMAND DOWN   (recording)")
			case hotkey.CommandUp:
				fmt.Println("<<< COMMAND UP     (stopped)")
			case hotkey.CancelTap:
				fmt.Println("xxx CANCEL")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
