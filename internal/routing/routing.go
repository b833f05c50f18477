// Package routing selects a payment provider by rule and breaker state
// (spec.md §4.6), grounded 1:1 on api_gateway/services/routing.py's
// RoutingEngine.select_provider.
package routing

import (
	"context"

	"github.com/brackwater/payrail/internal/breaker"
	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
)

// HighValueThreshold is the minor-units amount at or above which
// HighValueProvider is preferred (spec.md §4.6).
const HighValueThreshold = 10000

// HighValueProvider is the provider routed to for high-value payments.
const HighValueProvider = "providerB"

// CountryRoutes maps ISO-3166 country codes to a preferred provider.
// Informational/preferential only — every hop is still gated by the
// breaker.
var CountryRoutes = map[string]string{
	"DE": "providerB",
	"FR": "providerB",
	"GB": "providerB",
	"JP": "providerB",
	"US": "providerA",
	"CA": "providerA",
	"AU": "providerA",
}

// CostTable carries the per-provider percentage fee from the original
// implementation's COST_TABLE. Nothing in the service reads it: it is
// not exposed on any endpoint and never influences select_provider,
// matching the original's behavior.
var CostTable = map[string]float64{
	"providerA": 2.9,
	"providerB": 2.5,
}

// Engine selects a provider for an authorization attempt.
type Engine struct {
	breaker          *breaker.Manager
	defaultProvider  string
	failoverProvider string
}

// New builds a routing Engine.
func New(b *breaker.Manager, defaultProvider, failoverProvider string) *Engine {
	return &Engine{breaker: b, defaultProvider: defaultProvider, failoverProvider: failoverProvider}
}

// admits reports whether providerID's circuit currently allows calls.
func (e *Engine) admits(ctx context.Context, providerID string) bool {
	return e.breaker.CanExecute(ctx, providerID) == nil
}

// SelectProvider runs the five-step chain from spec.md §4.6: preferred →
// country table → amount threshold → default → failover. It returns
// merrors.NoProvidersAvailableError if every candidate's breaker is open.
func (e *Engine) SelectProvider(ctx context.Context, amount int, currency, country, preferredProvider string) (string, error) {
	if preferredProvider != "" && e.admits(ctx, preferredProvider) {
		return preferredProvider, nil
	}

	logger := mlog.FromContext(ctx)

	if country != "" {
		if provider, ok := CountryRoutes[country]; ok && e.admits(ctx, provider) {
			logger.Infof("routing to %s based on country %s", provider, country)

			return provider, nil
		}
	}

	if amount >= HighValueThreshold && e.admits(ctx, HighValueProvider) {
		logger.Infof("routing to %s for high-value payment (%d)", HighValueProvider, amount)

		return HighValueProvider, nil
	}

	if e.admits(ctx, e.defaultProvider) {
		return e.defaultProvider, nil
	}

	if e.admits(ctx, e.failoverProvider) {
		logger.Warnf("failing over to %s", e.failoverProvider)

		return e.failoverProvider, nil
	}

	logger.Error("no providers available")

	return "", merrors.NoProvidersAvailableError{}
}
