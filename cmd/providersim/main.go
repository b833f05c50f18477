// Command providersim runs the fault-injecting provider simulator used
// only for testing (spec.md §9), exposing the RPC contract
// internal/providerclient calls against plus an admin surface for tuning
// each provider's failure profile.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/brackwater/payrail/internal/config"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/providersim"
)

func main() {
	cfg := config.Load()

	level, _ := mlog.ParseLevel(cfg.LogLevel)

	logger, err := mlog.NewZapLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	seed, parseErr := strconv.ParseInt(cfg.Seed, 10, 64)
	if parseErr != nil || cfg.Seed == "" {
		seed = 42
	}

	sim := providersim.New(seed, cfg.WebhookSecret, cfg.WebhookCallbackURL, logger)

	addr := config.Getenv("PROVIDER_SIM_ADDRESS", ":8028")

	logger.Infof("payrail provider simulator listening on %s", addr)

	if err := sim.Router().Listen(addr); err != nil {
		fmt.Fprintf(os.Stderr, "provider simulator stopped: %v\n", err)
		os.Exit(1)
	}
}
