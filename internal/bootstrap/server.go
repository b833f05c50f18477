package bootstrap

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/httpapi"
)

const (
	outboxInterval         = 2 * time.Second
	settlementInterval     = time.Hour
	reconciliationInterval = time.Hour
)

// App returns the fiber.App serving spec.md §6's HTTP surface, wired to
// this Service's capabilities.
func (s *Service) App() *fiber.App {
	return httpapi.New(s.Orchestrator, s.Webhook, s.Reconciliation, s.Breaker, s.Store, s.RateLimit)
}

// RunBackgroundJobs starts the outbox dispatcher, settlement generator,
// and reconciliation engine loops, blocking until ctx is cancelled.
func (s *Service) RunBackgroundJobs(ctx context.Context) {
	go s.Outbox.Run(ctx, outboxInterval)
	go s.Settlement.Run(ctx, settlementInterval)
	go s.Reconciliation.Run(ctx, reconciliationInterval)

	<-ctx.Done()
}
