package providersim

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/brackwater/payrail/internal/idgen"
	"github.com/brackwater/payrail/internal/mlog"
)

// stats is the per-provider counters, kept in memory alongside its config
// for /admin/providers/:id/stats to report on.
type stats struct {
	TotalRequests  int        `json:"total_requests"`
	TotalSuccesses int        `json:"total_successes"`
	TotalFailures  int        `json:"total_failures"`
	LastRequestAt  *time.Time `json:"last_request_at,omitempty"`
}

// Simulator fakes a set of payment processors with configurable fault
// injection, firing signed webhook callbacks asynchronously the way a
// real processor would.
type Simulator struct {
	mu       sync.Mutex
	profiles map[string]FailureConfig
	stats    map[string]*stats

	rng *rand.Rand

	webhookSecret      string
	webhookCallbackURL string
	http               *http.Client
	logger             mlog.Logger
}

// New builds a Simulator seeded deterministically so test runs are
// reproducible (spec.md's SEED env var).
func New(seed int64, webhookSecret, webhookCallbackURL string, logger mlog.Logger) *Simulator {
	return &Simulator{
		profiles:           defaultProfiles(),
		stats:              map[string]*stats{},
		rng:                rand.New(rand.NewSource(seed)),
		webhookSecret:      webhookSecret,
		webhookCallbackURL: webhookCallbackURL,
		http:               &http.Client{Timeout: 10 * time.Second},
		logger:             logger,
	}
}

func (s *Simulator) configFor(providerID string) FailureConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.profiles[providerID]; ok {
		return cfg
	}

	return defaultConfig()
}

// SetConfig replaces providerID's FailureConfig (the admin endpoint).
func (s *Simulator) SetConfig(providerID string, cfg FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[providerID] = cfg
}

func (s *Simulator) recordRequest(providerID string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[providerID]
	if !ok {
		st = &stats{}
		s.stats[providerID] = st
	}

	st.TotalRequests++

	if success {
		st.TotalSuccesses++
	} else {
		st.TotalFailures++
	}

	now := time.Now()
	st.LastRequestAt = &now
}

// Stats returns a snapshot of providerID's request counters.
func (s *Simulator) Stats(providerID string) stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stats[providerID]; ok {
		return *st
	}

	return stats{}
}

func (s *Simulator) sleepLatency(cfg FailureConfig) {
	lo, hi := cfg.LatencyMSMin, cfg.LatencyMSMax
	if hi <= lo {
		hi = lo + 1
	}

	ms := lo + s.rng.Intn(hi-lo)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// rpcOutcome classifies what a simulated RPC did, so callers can decide
// the HTTP status and response body.
type rpcOutcome struct {
	timedOut bool
	errored  bool
	success  bool
	reason   string
}

func (s *Simulator) roll(providerID string, cfg FailureConfig) rpcOutcome {
	s.sleepLatency(cfg)

	if s.rng.Float64() < cfg.TimeoutRate {
		return rpcOutcome{timedOut: true}
	}

	if s.rng.Float64() < cfg.ErrorRate {
		return rpcOutcome{errored: true}
	}

	if s.rng.Float64() < cfg.DeclineRate {
		reasons := declineReasons[providerID]
		if len(reasons) == 0 {
			reasons = []string{"declined"}
		}

		return rpcOutcome{success: false, reason: reasons[s.rng.Intn(len(reasons))]}
	}

	return rpcOutcome{success: true}
}

// Authorize simulates POST /providers/{id}/authorize.
func (s *Simulator) Authorize(ctx context.Context, providerID, paymentID string, amount int, currency, correlationID string) (providerRef string, success bool, reason string, timedOut, errored bool) {
	cfg := s.configFor(providerID)
	outcome := s.roll(providerID, cfg)

	s.recordRequest(providerID, outcome.success)

	if outcome.timedOut || outcome.errored {
		return "", false, "", outcome.timedOut, outcome.errored
	}

	ref := idgen.ProviderRef()

	if outcome.success {
		s.fireWebhook(ctx, "payment.authorized", providerID, map[string]any{
			"payment_id": paymentID, "provider_ref": ref, "amount": amount, "currency": currency,
		}, cfg, correlationID)
	} else {
		s.fireWebhook(ctx, "payment.declined", providerID, map[string]any{
			"payment_id": paymentID, "reason": outcome.reason, "amount": amount, "currency": currency,
		}, cfg, correlationID)
	}

	if !outcome.success {
		return "", false, outcome.reason, false, false
	}

	return ref, true, "", false, false
}

// Capture simulates POST /providers/{id}/capture.
func (s *Simulator) Capture(ctx context.Context, providerID, paymentID, providerRef string, amount int, correlationID string) (success bool, reason string, timedOut, errored bool) {
	cfg := s.configFor(providerID)
	outcome := s.roll(providerID, cfg)

	s.recordRequest(providerID, outcome.success)

	if outcome.timedOut || outcome.errored {
		return false, "", outcome.timedOut, outcome.errored
	}

	if outcome.success {
		s.fireWebhook(ctx, "payment.captured", providerID, map[string]any{
			"payment_id": paymentID, "provider_ref": providerRef, "amount": amount,
		}, cfg, correlationID)
	}

	return outcome.success, outcome.reason, false, false
}

// Refund simulates POST /providers/{id}/refund.
func (s *Simulator) Refund(ctx context.Context, providerID, paymentID, providerRef string, amount int, correlationID string) (success bool, reason string, timedOut, errored bool) {
	cfg := s.configFor(providerID)
	outcome := s.roll(providerID, cfg)

	s.recordRequest(providerID, outcome.success)

	if outcome.timedOut || outcome.errored {
		return false, "", outcome.timedOut, outcome.errored
	}

	return outcome.success, outcome.reason, false, false
}

type webhookEnvelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Provider  string         `json:"provider"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Simulator) signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)

	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// fireWebhook posts a signed callback asynchronously, optionally
// delivering it twice per cfg.DuplicateWebhookRate — mirroring a
// processor that double-sends under network retry.
func (s *Simulator) fireWebhook(ctx context.Context, eventType, providerID string, data map[string]any, cfg FailureConfig, correlationID string) {
	envelope := webhookEnvelope{
		ID:        idgen.WebhookEventID(),
		Type:      eventType,
		Provider:  providerID,
		Data:      data,
		CreatedAt: time.Now(),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Errorf("providersim: failed to marshal webhook envelope: %v", err)
		return
	}

	go func() {
		s.postWebhook(body, correlationID)

		if s.rng.Float64() < cfg.DuplicateWebhookRate {
			time.Sleep(500 * time.Millisecond)
			s.postWebhook(body, correlationID)
		}
	}()
}

func (s *Simulator) postWebhook(body []byte, correlationID string) {
	req, err := http.NewRequest(http.MethodPost, s.webhookCallbackURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Errorf("providersim: failed to build webhook request: %v", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", s.signWebhook(body))
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warnf("providersim: webhook delivery failed: %v", err)
		return
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warnf("providersim: webhook callback returned %d", resp.StatusCode)
	}
}
