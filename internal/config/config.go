// Package config loads the environment variables listed in spec.md §6,
// grounded on the teacher's common/os.go Getenv* helpers. CLI/config
// parsing frameworks are a named Non-goal (spec.md §1); this package is
// the minimal env-var reader every ambient component still needs.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// Best-effort: a missing .env is normal outside local dev.
	_ = godotenv.Load()
}

// Getenv returns the environment variable's value, or def if unset/blank.
func Getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return def
}

// GetenvInt returns the environment variable parsed as int, or def if
// unset or unparsable.
func GetenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

// Config is the process-wide set of environment-derived settings shared
// by every payrail binary.
type Config struct {
	DataDir              string
	StoreBackend         string // "file" (default) or "postgres"
	PostgresDSN          string
	RedisURL             string
	RabbitMQURL          string
	VaultServiceURL      string
	ProviderSimURL       string
	WebhookSecret        string
	WebhookCallbackURL   string
	DefaultProvider      string
	FailoverProvider     string
	CBFailureThreshold   int
	CBRecoveryTimeout    int
	CBHalfOpenMaxCalls   int
	RateLimitPerMinute   int
	LogLevel             string
	Seed                 string
	ServerAddress        string
	OtelExporterEndpoint string
	OtelServiceName      string
}

// Load reads Config from the process environment, applying the defaults
// spec.md §9 documents for the circuit breaker tunables.
func Load() Config {
	return Config{
		DataDir:              Getenv("DATA_DIR", "./data"),
		StoreBackend:         Getenv("STORE_BACKEND", "file"),
		PostgresDSN:          Getenv("POSTGRES_DSN", ""),
		RedisURL:             Getenv("REDIS_URL", ""),
		RabbitMQURL:          Getenv("RABBITMQ_URL", ""),
		VaultServiceURL:      Getenv("VAULT_SERVICE_URL", "http://localhost:8029"),
		ProviderSimURL:       Getenv("PROVIDER_SIM_URL", "http://localhost:8028"),
		WebhookSecret:        Getenv("WEBHOOK_SECRET", "whsec_payrail_demo_secret_key_2026"),
		WebhookCallbackURL:   Getenv("WEBHOOK_CALLBACK_URL", "http://localhost:8026/webhooks/provider"),
		DefaultProvider:      Getenv("DEFAULT_PROVIDER", "providerA"),
		FailoverProvider:     Getenv("FAILOVER_PROVIDER", "providerB"),
		CBFailureThreshold:   GetenvInt("CB_FAILURE_THRESHOLD", 5),
		CBRecoveryTimeout:    GetenvInt("CB_RECOVERY_TIMEOUT", 30),
		CBHalfOpenMaxCalls:   GetenvInt("CB_HALF_OPEN_MAX_CALLS", 3),
		RateLimitPerMinute:   GetenvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:             Getenv("LOG_LEVEL", "info"),
		Seed:                 Getenv("SEED", ""),
		ServerAddress:        Getenv("SERVER_ADDRESS", ":8026"),
		OtelExporterEndpoint: Getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelServiceName:      Getenv("OTEL_SERVICE_NAME", "payrail"),
	}
}
