// Package providerclient issues authorize/capture/refund RPCs to the
// provider simulator and records the outcome in the circuit breaker
// (spec.md §4.7), grounded 1:1 on
// api_gateway/services/provider_client.py's ProviderClient.
package providerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mtrace"
)

// Timeout is the per-RPC deadline to the provider simulator (spec.md §5).
const Timeout = 10 * time.Second

// Client issues provider RPCs over HTTP, guarded by a breaker.Manager.
type Client struct {
	baseURL string
	breaker *breaker.Manager
	http    *http.Client
}

// New builds a Client targeting baseURL (PROVIDER_SIM_URL).
func New(baseURL string, b *breaker.Manager) *Client {
	return &Client{baseURL: baseURL, breaker: b, http: &http.Client{Timeout: Timeout}}
}

// Result is the decoded provider RPC response body.
type Result struct {
	Success     bool   `json:"success"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (c *Client) post(ctx context.Context, providerID, path string, body map[string]any) (Result, error) {
	if err := c.breaker.CanExecute(ctx, providerID); err != nil {
		return Result{}, merrors.ProviderUnavailableError{ProviderID: providerID}
	}

	body["correlation_id"] = mtrace.CorrelationID(ctx)

	buf, err := json.Marshal(body)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/providers/%s/%s", c.baseURL, providerID, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return Result{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", mtrace.CorrelationID(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		_ = c.breaker.RecordFailure(ctx, providerID)

		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, merrors.ProviderTimeoutError{ProviderID: providerID}
		}

		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Result{}, merrors.ProviderTimeoutError{ProviderID: providerID}
		}

		return Result{}, merrors.ProviderError{ProviderID: providerID, Detail: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = c.breaker.RecordFailure(ctx, providerID)

		return Result{}, merrors.ProviderError{ProviderID: providerID, Detail: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		_ = c.breaker.RecordFailure(ctx, providerID)

		return Result{}, merrors.ProviderError{ProviderID: providerID, Detail: string(data)}
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		_ = c.breaker.RecordFailure(ctx, providerID)

		return Result{}, merrors.ProviderError{ProviderID: providerID, Detail: "malformed response body"}
	}

	if result.Success {
		_ = c.breaker.RecordSuccess(ctx, providerID)
	} else {
		_ = c.breaker.RecordFailure(ctx, providerID)
	}

	return result, nil
}

// Authorize calls POST /providers/{id}/authorize.
func (c *Client) Authorize(ctx context.Context, providerID, paymentID string, amount int, currency, pan, expiry, merchantID string) (Result, error) {
	return c.post(ctx, providerID, "authorize", map[string]any{
		"payment_id":  paymentID,
		"amount":      amount,
		"currency":    currency,
		"pan":         pan,
		"expiry":      expiry,
		"merchant_id": merchantID,
	})
}

// Capture calls POST /providers/{id}/capture.
func (c *Client) Capture(ctx context.Context, providerID, paymentID, providerRef string, amount int) (Result, error) {
	return c.post(ctx, providerID, "capture", map[string]any{
		"payment_id":   paymentID,
		"provider_ref": providerRef,
		"amount":       amount,
	})
}

// Refund calls POST /providers/{id}/refund.
func (c *Client) Refund(ctx context.Context, providerID, paymentID, providerRef string, amount int) (Result, error) {
	return c.post(ctx, providerID, "refund", map[string]any{
		"payment_id":   paymentID,
		"provider_ref": providerRef,
		"amount":       amount,
	})
}
