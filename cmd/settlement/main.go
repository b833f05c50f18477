// Command settlement runs the settlement generator and reconciliation
// engine loops standalone, matching how the original batch jobs were
// deployed separately from the live API process.
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

const (
	settlementInterval     = time.Hour
	reconciliationInterval = time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	svc, err := bootstrap.NewService(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize payrail settlement job: %v\n", err)
		os.Exit(1)
	}

	svc.Logger.Infof("payrail settlement job running every %s", settlementInterval)

	go svc.Reconciliation.Run(ctx, reconciliationInterval)

	svc.Settlement.Run(ctx, settlementInterval)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		svc.Logger.Warnf("tracer shutdown: %v", err)
	}
}
