// Package httpapi is the Fiber-based HTTP surface for every endpoint in
// spec.md §6, grounded on the teacher's adapters/http/in routers
// (components/crm/internal/adapters/http/in/routes.go), with lib-commons
// middleware replaced by direct use of the ambient mlog/mtrace packages
// since the teacher's wrappers depend on its unfetchable internal module.
package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/ratelimit"
	"github.com/brackwater/payrail/internal/reconciliation"
	"github.com/brackwater/payrail/internal/store"
	"github.com/brackwater/payrail/internal/webhook"
)

// Server bundles everything the HTTP layer needs to serve spec.md §6.
type Server struct {
	orch    *orchestrator.Orchestrator
	webhook *webhook.Ingress
	recon   *reconciliation.Engine
	breaker *breaker.Manager
	store   store.Store
	metrics *metricsRecorder
}

// New wires a Server and returns its fiber.App, ready to Listen. limiter
// may be nil, in which case mutating routes carry no rate limit.
func New(orch *orchestrator.Orchestrator, wh *webhook.Ingress, recon *reconciliation.Engine, b *breaker.Manager, st store.Store, limiter ratelimit.Limiter) *fiber.App {
	s := &Server{orch: orch, webhook: wh, recon: recon, breaker: b, store: st, metrics: newMetricsRecorder()}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return WithError(c, err)
		},
	})

	app.Use(withRecover())
	app.Use(withCorrelationID())
	app.Use(withTracing())
	app.Use(withRequestLogging(s.metrics))

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	app.Get("/metrics", s.GetMetrics)
	app.Get("/providers/health", s.GetProvidersHealth)

	// mutatingChain returns a fresh handler slice per call (never shares an
	// underlying array across routes) ending in final.
	mutatingChain := func(final fiber.Handler) []fiber.Handler {
		chain := []fiber.Handler{requireMerchantHeader()}
		if limiter != nil {
			chain = append(chain, withRateLimit(limiter))
		}

		return append(chain, final)
	}

	payments := app.Group("/payment-intents")
	payments.Post("/", mutatingChain(s.CreatePayment)...)
	payments.Get("/", s.ListPayments)
	payments.Get("/:id", s.GetPayment)
	payments.Post("/:id/authorize", mutatingChain(s.AuthorizePayment)...)
	payments.Post("/:id/capture", mutatingChain(s.CapturePayment)...)
	payments.Post("/:id/cancel", mutatingChain(s.CancelPayment)...)

	refunds := app.Group("/refunds")
	refunds.Post("/", mutatingChain(s.CreateRefund)...)
	refunds.Get("/", s.ListRefunds)
	refunds.Get("/:id", s.GetRefund)
	refunds.Post("/:id/approve", mutatingChain(s.ApproveRefund)...)
	refunds.Post("/:id/reject", mutatingChain(s.RejectRefund)...)

	disputes := app.Group("/disputes")
	disputes.Post("/", mutatingChain(s.CreateDispute)...)
	disputes.Get("/", s.ListDisputes)
	disputes.Get("/:id", s.GetDispute)
	disputes.Post("/:id/submit-evidence", mutatingChain(s.SubmitEvidence)...)
	disputes.Post("/:id/resolve", mutatingChain(s.ResolveDispute)...)

	app.Post("/webhooks/provider", s.ReceiveWebhook)

	audit := app.Group("/audit")
	audit.Get("/payments", s.AuditFamily("payments"))
	audit.Get("/refunds", s.AuditFamily("refunds"))
	audit.Get("/disputes", s.AuditFamily("disputes"))
	audit.Get("/export", s.AuditExport)
	audit.Get("/reconciliation", s.AuditReconciliation)
	audit.Get("/settlements", s.AuditSettlements)

	return app
}
