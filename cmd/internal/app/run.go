package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run loads configuration, wires the application, and serves until
// SIGINT or SIGTERM. It returns the error instead of exiting so
// cmd/vidtube stays a one-liner and defers run to completion.
func Run() error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel)

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}
