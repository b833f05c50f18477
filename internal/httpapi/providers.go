package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

// GetProvidersHealth handles GET /providers/health, returning the
// persisted breaker snapshot for each configured provider (spec.md §6).
func (s *Server) GetProvidersHealth(c *fiber.Ctx) error {
	providerIDs := []string{s.orch.DefaultProvider, s.orch.FailoverProvider}

	seen := map[string]bool{}
	snapshots := make(fiber.Map, len(providerIDs))

	for _, id := range providerIDs {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true

		state, err := s.breaker.Snapshot(c.UserContext(), id)
		if err != nil {
			return WithError(c, err)
		}

		snapshots[id] = state
	}

	return c.JSON(snapshots)
}

// GetMetrics handles GET /metrics, returning the in-process ring buffer
// of recent request lines (spec.md §6).
func (s *Server) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"lines": s.metrics.snapshot()})
}
