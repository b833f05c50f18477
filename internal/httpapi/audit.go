package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/domain/ledger"
	"github.com/brackwater/payrail/internal/store"
)

func familyOf(name string) ledger.Family {
	switch name {
	case "refunds":
		return ledger.Refunds
	case "disputes":
		return ledger.Disputes
	default:
		return ledger.Payments
	}
}

// AuditFamily returns a handler for GET /audit/{payments|refunds|disputes}.
// With ?ref_id= it returns that entity's full ledger history; otherwise it
// paginates the family's stream newest-first.
func (s *Server) AuditFamily(family string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if refID := c.Query("ref_id"); refID != "" {
			entries, err := s.orch.Ledger.GetEntriesForRef(c.UserContext(), refID)
			if err != nil {
				return WithError(c, err)
			}

			return c.JSON(fiber.Map{"items": entries, "total": len(entries)})
		}

		limit, offset := paginationParams(c)

		entries, total, err := s.orch.Ledger.GetAllEntries(c.UserContext(), familyOf(family), limit, offset)
		if err != nil {
			return WithError(c, err)
		}

		return c.JSON(fiber.Map{"items": entries, "total": total, "limit": limit, "offset": offset})
	}
}

// AuditExport handles GET /audit/export?entity_type=payments|refunds|disputes,
// returning the full unpaginated dump of one family's ledger stream.
func (s *Server) AuditExport(c *fiber.Ctx) error {
	entries, total, err := s.orch.Ledger.GetAllEntries(c.UserContext(), familyOf(c.Query("entity_type")), 0, 0)
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(fiber.Map{"entity_type": c.Query("entity_type"), "items": entries, "total": total})
}

// AuditReconciliation handles GET /audit/reconciliation, returning the
// most recently generated report.
func (s *Server) AuditReconciliation(c *fiber.Ctx) error {
	report, ok := s.recon.GetLastReport()
	if !ok {
		return c.JSON(fiber.Map{"status": "not_yet_generated"})
	}

	return c.JSON(report)
}

// AuditSettlements handles GET /audit/settlements?date=YYYY-MM-DD,
// summarizing the settlement CSV rows for that day.
func (s *Server) AuditSettlements(c *fiber.Ctx) error {
	date := c.Query("date", time.Now().UTC().Format("2006-01-02"))

	rows, err := s.store.ReadCSV(c.UserContext(), "settlement/settlement_"+date+".csv")
	if err != nil && err != store.ErrNotFound {
		return WithError(c, err)
	}

	return c.JSON(fiber.Map{"date": date, "rows": rows, "count": len(rows)})
}
