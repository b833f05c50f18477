// Package bootstrap wires every capability into a running process,
// grounded on the teacher's internal/bootstrap/service.go dependency
// graph: config -> store -> domain services -> orchestrator -> server.
package bootstrap

import (
	"context"
	"time"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idempotency"
	"github.com/brackwater/payrail/internal/ledger"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/outbox"
	"github.com/brackwater/payrail/internal/providerclient"
	"github.com/brackwater/payrail/internal/ratelimit"
	"github.com/brackwater/payrail/internal/reconciliation"
	"github.com/brackwater/payrail/internal/routing"
	"github.com/brackwater/payrail/internal/settlement"
	"github.com/brackwater/payrail/internal/store"
	"github.com/brackwater/payrail/internal/store/filestore"
	"github.com/brackwater/payrail/internal/vault"
	"github.com/brackwater/payrail/internal/webhook"
)

// Service bundles every long-lived capability a payrail process can
// select from, regardless of which binary (api, dispatcher, settlement)
// ends up using it.
type Service struct {
	Config    config.Config
	Logger    mlog.Logger
	Store     store.Store
	Breaker   *breaker.Manager
	Ledger    *ledger.Service
	Idem      *idempotency.Service
	Routing   *routing.Engine
	Provider  *providerclient.Client
	Vault     *vault.Vault
	RateLimit ratelimit.Limiter

	Payments *entities.PaymentRepository
	Refunds  *entities.RefundRepository
	Disputes *entities.DisputeRepository

	Orchestrator   *orchestrator.Orchestrator
	Webhook        *webhook.Ingress
	Outbox         *outbox.Dispatcher
	Settlement     *settlement.Generator
	Reconciliation *reconciliation.Engine

	// Shutdown flushes the tracer provider. Safe to call even when
	// tracing was never enabled (cfg.OtelExporterEndpoint empty).
	Shutdown func(context.Context) error
}

// NewService builds every capability from cfg, choosing the store
// backend named by cfg.StoreBackend.
func NewService(ctx context.Context, cfg config.Config) (*Service, error) {
	level, _ := mlog.ParseLevel(cfg.LogLevel)

	logger, err := mlog.NewZapLogger(level)
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := newTracerProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	breakerMgr := breaker.New(st, breaker.Config{
		FailureThreshold: cfg.CBFailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.CBRecoveryTimeout) * time.Second,
		HalfOpenMaxCalls: cfg.CBHalfOpenMaxCalls,
	})

	ledgerSvc := ledger.New(st)
	idemSvc := idempotency.New(st)
	routingEngine := routing.New(breakerMgr, cfg.DefaultProvider, cfg.FailoverProvider)
	providerClient := providerclient.New(cfg.ProviderSimURL, breakerMgr)
	vaultSvc := vault.New(st)
	limiter := newRateLimiter(cfg)

	payments := entities.NewPaymentRepository(st)
	refunds := entities.NewRefundRepository(st)
	disputes := entities.NewDisputeRepository(st)

	orch := orchestrator.New(
		payments, refunds, disputes,
		ledgerSvc, idemSvc, routingEngine, providerClient, vaultSvc, breakerMgr,
		cfg.DefaultProvider, cfg.FailoverProvider,
	)

	webhookIngress := webhook.New(st, payments, ledgerSvc, cfg.WebhookSecret)

	amqpChannel, err := newAMQPChannel(cfg, logger)
	if err != nil {
		return nil, err
	}

	outboxDispatcher := outbox.New(st, cfg.WebhookCallbackURL, cfg.WebhookSecret, amqpChannel)
	settlementGen := settlement.New(st, payments)
	reconEngine := reconciliation.New(st)

	return &Service{
		Config:         cfg,
		Logger:         logger,
		Store:          st,
		Breaker:        breakerMgr,
		Ledger:         ledgerSvc,
		Idem:           idemSvc,
		Routing:        routingEngine,
		Provider:       providerClient,
		Vault:          vaultSvc,
		RateLimit:      limiter,
		Payments:       payments,
		Refunds:        refunds,
		Disputes:       disputes,
		Orchestrator:   orch,
		Webhook:        webhookIngress,
		Outbox:         outboxDispatcher,
		Settlement:     settlementGen,
		Reconciliation: reconEngine,
		Shutdown:       shutdownTracing,
	}, nil
}

func newStore(ctx context.Context, cfg config.Config, logger mlog.Logger) (store.Store, error) {
	if cfg.StoreBackend == "postgres" {
		return newPGStore(ctx, cfg)
	}

	return filestore.New(cfg.DataDir, logger)
}
