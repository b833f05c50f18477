// Package providersim is the fault-injecting provider RPC server used
// only for testing (spec.md §9's "Provider-sim" note), grounded on
// provider_sim/failure_injection.py and provider_sim/main.py's profile
// and webhook-signing design.
package providersim

// FailureConfig tunes how often a simulated provider times out, declines,
// errors, or double-delivers its webhook, plus the artificial latency
// band every RPC sleeps inside.
type FailureConfig struct {
	TimeoutRate            float64 `json:"timeout_rate"`
	DeclineRate            float64 `json:"decline_rate"`
	ErrorRate               float64 `json:"error_rate"`
	DuplicateWebhookRate    float64 `json:"duplicate_webhook_rate"`
	SettlementMismatchRate  float64 `json:"settlement_mismatch_rate"`
	LatencyMSMin            int     `json:"latency_ms_min"`
	LatencyMSMax            int     `json:"latency_ms_max"`
}

// defaultProfiles mirrors the reference simulator's two named providers.
func defaultProfiles() map[string]FailureConfig {
	return map[string]FailureConfig{
		"providerA": {DeclineRate: 0.05, LatencyMSMin: 100, LatencyMSMax: 300},
		"providerB": {DeclineRate: 0.10, LatencyMSMin: 200, LatencyMSMax: 500},
	}
}

// declineReasons mirrors the reference simulator's per-provider decline
// vocabulary so responses look provider-specific.
var declineReasons = map[string][]string{
	"providerA": {"insufficient_funds", "card_declined", "expired_card", "processing_error"},
	"providerB": {"DECLINED", "FRAUD", "EXPIRED", "DO_NOT_HONOR"},
}

func defaultConfig() FailureConfig {
	return FailureConfig{DeclineRate: 0.05, LatencyMSMin: 100, LatencyMSMax: 300}
}
