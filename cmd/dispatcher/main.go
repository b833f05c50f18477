// Command dispatcher runs the outbox dispatcher loop standalone, so
// webhook delivery can be scaled and deployed independently of the API
// process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brackwater/payrail/internal/bootstrap"
	"github.com/brackwater/payrail/internal/config"
)

const pollInterval = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	svc, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize payrail dispatcher: %v\n", err)
		os.Exit(1)
	}

	svc.Logger.Infof("payrail dispatcher polling every %s", pollInterval)

	svc.Outbox.Run(ctx, pollInterval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		svc.Logger.Warnf("tracer shutdown: %v", err)
	}
}
