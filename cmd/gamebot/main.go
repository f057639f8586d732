package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gamebot/cmd/gamebot/cmd"
)

func main() {
	// Interrupts cancel between fetch chunks, never mid-checkpoint
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
