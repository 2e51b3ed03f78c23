// Package main provides extverify, a command line harness that drives a
// real Chromium against a browser extension, runs verification scenarios and
// leaves screenshots and failure diagnostics behind for CI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

func main() {
	// Interrupts cancel the running scenario; the session is still released
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().command().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
