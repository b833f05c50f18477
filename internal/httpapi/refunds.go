package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/validation"
)

// CreateRefund handles POST /refunds.
func (s *Server) CreateRefund(c *fiber.Ctx) error {
	var req orchestrator.CreateRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	if err := validation.Struct(req); err != nil {
		return WithError(c, err)
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.CreateRefund(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// GetRefund handles GET /refunds/{id}.
func (s *Server) GetRefund(c *fiber.Ctx) error {
	body, err := s.orch.GetRefund(c.UserContext(), c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// ListRefunds handles GET /refunds.
func (s *Server) ListRefunds(c *fiber.Ctx) error {
	limit, offset := paginationParams(c)

	body, err := s.orch.ListRefunds(c.UserContext(), c.Query("state"), c.Query("payment_id"), limit, offset)
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// ApproveRefund handles POST /refunds/{id}/approve.
func (s *Server) ApproveRefund(c *fiber.Ctx) error {
	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.ApproveRefund(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// RejectRefund handles POST /refunds/{id}/reject.
func (s *Server) RejectRefund(c *fiber.Ctx) error {
	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.RejectRefund(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}
