// Command api serves the HTTP surface described in spec.md §6: payment
// intents, refunds, disputes, webhook ingress, and audit/reconciliation
// read endpoints.
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

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	svc, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize payrail api: %v\n", err)
		os.Exit(1)
	}

	go svc.RunBackgroundJobs(ctx)

	app := svc.App()

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(5 * time.Second)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := svc.Shutdown(shutdownCtx); err != nil {
			svc.Logger.Warnf("tracer shutdown: %v", err)
		}
	}()

	svc.Logger.Infof("payrail api listening on %s", cfg.ServerAddress)

	if err := app.Listen(cfg.ServerAddress); err != nil {
		svc.Logger.Errorf("api server stopped: %v", err)
		os.Exit(1)
	}
}
