// Command test-inject is a manual test for text injection.
// It waits 3 seconds, then types or pastes test text.
// Focus a text editor before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--method type|paste] [--read-selection]
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/kreativoldal/kreativ-diktalo/internal/inject"
)

func main() {
	method := flag.String("method", "type", "inject method: type or paste")
	readSelection := flag.Bool("read-selection", false, "read the current selection instead of injecting")
	flag.Parse()

	inj := inject.NewInjector(*method)

	if *readSelection {
		fmt.Println("Select some text anywhere in 3 seconds...")
		for i := 3; i > 0; i-- {
			fmt.Printf("%d...\n", i)
			time.Sleep(time.Second)
		}
		sel, err := inj.ReadSelection()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("Selection: %q\n", sel)
		return
	}

	text := "Hello from kreativ-diktalo!"

	fmt.Printf("Will inject %q using %q method in 3 seconds...\n", text, *method)
	fmt.Println("Focus a text editor now!")

	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	if err := inj.Inject(text, inject.ModeInsert); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}
