// lampfx drives addressable lamp arrays with animated lighting effects.
//
// Lamp arrays arrive over MQTT (or as a terminal preview), the render loop
// paints the configured effect onto every available array, and an HTTP API
// adjusts effects and settings at runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path.
// Uses LAMPFX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LAMPFX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
