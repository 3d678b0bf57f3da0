package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ollama-performance/internal/cli"
)

func main() {
	// Interrupts end the session between exchanges and abort the one in flight
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RootCommand().Run(ctx, os.Args); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
