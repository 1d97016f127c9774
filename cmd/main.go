package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	// On interrupt the running strategy winds down and the best
	// candidate found so far is still promoted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
