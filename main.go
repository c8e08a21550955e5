// Package main provides the entry point for the riso-reel command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"riso-reel/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
