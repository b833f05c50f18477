package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/entities"
	"github.com/brackwater/payrail/internal/idempotency"
	"github.com/brackwater/payrail/internal/ledger"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/providerclient"
	"github.com/brackwater/payrail/internal/ratelimit"
	"github.com/brackwater/payrail/internal/reconciliation"
	"github.com/brackwater/payrail/internal/routing"
	"github.com/brackwater/payrail/internal/store/filestore"
	"github.com/brackwater/payrail/internal/vault"
	"github.com/brackwater/payrail/internal/webhook"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providerclient.Result{Success: true, ProviderRef: "prov_test"})
	}))
	t.Cleanup(providerSrv.Close)

	b := breaker.New(st, breaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})
	routingEngine := routing.New(b, "providerA", "providerB")
	client := providerclient.New(providerSrv.URL, b)
	v := vault.New(st)
	ledgerSvc := ledger.New(st)
	idemSvc := idempotency.New(st)

	orch := orchestrator.New(
		entities.NewPaymentRepository(st),
		entities.NewRefundRepository(st),
		entities.NewDisputeRepository(st),
		ledgerSvc,
		idemSvc,
		routingEngine,
		client,
		v,
		b,
		"providerA", "providerB",
	)

	wh := webhook.New(st, entities.NewPaymentRepository(st), ledgerSvc, "whsec_test")
	recon := reconciliation.New(st)
	limiter := ratelimit.NewMemoryLimiter(1000, time.Minute)

	return New(orch, wh, recon, b, st, limiter)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, headers map[string]string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		buf = *bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}

	return resp, out
}

func TestHealthEndpointReportsOK(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func TestCreatePaymentRequiresMerchantAndIdempotencyHeaders(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodPost, "/payment-intents/", nil, map[string]any{"amount": 500})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, out["detail"])

	resp, out = doJSON(t, app, http.MethodPost, "/payment-intents/", map[string]string{"X-Merchant-Id": "m1"}, map[string]any{"amount": 500})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, out["detail"])
}

func TestCreatePaymentThenGetPaymentRoundTrips(t *testing.T) {
	app := newTestApp(t)

	headers := map[string]string{"X-Merchant-Id": "m1", "Idempotency-Key": "idem-1"}

	resp, out := doJSON(t, app, http.MethodPost, "/payment-intents/", headers, map[string]any{"amount": 500, "currency": "USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	resp, out = doJSON(t, app, http.MethodGet, "/payment-intents/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, out["id"])
}

func TestGetUnknownPaymentReturns404(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/payment-intents/pi_missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, out["detail"])
}

func TestFullAuthorizeCaptureFlowThroughHTTP(t *testing.T) {
	app := newTestApp(t)

	headers := map[string]string{"X-Merchant-Id": "m1", "Idempotency-Key": "idem-create"}

	_, created := doJSON(t, app, http.MethodPost, "/payment-intents/", headers, map[string]any{"amount": 500, "currency": "USD"})
	id := created["id"].(string)

	authHeaders := map[string]string{"X-Merchant-Id": "m1", "Idempotency-Key": "idem-authorize"}
	resp, authorized := doJSON(t, app, http.MethodPost, "/payment-intents/"+id+"/authorize", authHeaders, map[string]any{"pan": "4111111111111111", "expiry": "12/29"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "authorized", authorized["state"])

	captureHeaders := map[string]string{"X-Merchant-Id": "m1", "Idempotency-Key": "idem-capture"}
	resp, captured := doJSON(t, app, http.MethodPost, "/payment-intents/"+id+"/capture", captureHeaders, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "captured", captured["state"])
}

func TestProvidersHealthReturnsBothConfiguredProviders(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/providers/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "providerA")
	assert.Contains(t, out, "providerB")
}

func TestAuditReconciliationBeforeAnyRunReportsNotYetGenerated(t *testing.T) {
	app := newTestApp(t)

	resp, out := doJSON(t, app, http.MethodGet, "/audit/reconciliation", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "not_yet_generated", out["status"])
}

func TestCreatePaymentIsThrottledAfterRateLimitExceeded(t *testing.T) {
	st, err := filestore.New(t.TempDir(), &mlog.GoLogger{Level: mlog.ErrorLevel})
	require.NoError(t, err)

	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providerclient.Result{Success: true, ProviderRef: "prov_test"})
	}))
	t.Cleanup(providerSrv.Close)

	b := breaker.New(st, breaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})
	routingEngine := routing.New(b, "providerA", "providerB")
	client := providerclient.New(providerSrv.URL, b)
	v := vault.New(st)
	ledgerSvc := ledger.New(st)
	idemSvc := idempotency.New(st)

	orch := orchestrator.New(
		entities.NewPaymentRepository(st),
		entities.NewRefundRepository(st),
		entities.NewDisputeRepository(st),
		ledgerSvc, idemSvc, routingEngine, client, v, b,
		"providerA", "providerB",
	)

	wh := webhook.New(st, entities.NewPaymentRepository(st), ledgerSvc, "whsec_test")
	recon := reconciliation.New(st)
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)

	app := New(orch, wh, recon, b, st, limiter)

	headers := map[string]string{"X-Merchant-Id": "throttled-merchant", "Idempotency-Key": "idem-1"}
	resp, _ := doJSON(t, app, http.MethodPost, "/payment-intents/", headers, map[string]any{"amount": 500, "currency": "USD"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	headers["Idempotency-Key"] = "idem-2"
	resp, out := doJSON(t, app, http.MethodPost, "/payment-intents/", headers, map[string]any{"amount": 500, "currency": "USD"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, out["detail"])
}

func TestWebhookReceiveRejectsBadSignature(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader([]byte(`{"id":"whevt_1","type":"payment.authorized","data":{}}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256=bad")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
