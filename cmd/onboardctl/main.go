package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FluentPro/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
