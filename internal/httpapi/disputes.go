package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/validation"
)

// CreateDispute handles POST /disputes.
func (s *Server) CreateDispute(c *fiber.Ctx) error {
	var req orchestrator.CreateDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	if err := validation.Struct(req); err != nil {
		return WithError(c, err)
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.OpenDispute(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// GetDispute handles GET /disputes/{id}.
func (s *Server) GetDispute(c *fiber.Ctx) error {
	body, err := s.orch.GetDispute(c.UserContext(), c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// ListDisputes handles GET /disputes.
func (s *Server) ListDisputes(c *fiber.Ctx) error {
	limit, offset := paginationParams(c)

	body, err := s.orch.ListDisputes(c.UserContext(), c.Query("state"), c.Query("payment_id"), limit, offset)
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// SubmitEvidence handles POST /disputes/{id}/submit-evidence.
func (s *Server) SubmitEvidence(c *fiber.Ctx) error {
	var req orchestrator.SubmitEvidenceRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	if err := validation.Struct(req); err != nil {
		return WithError(c, err)
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.SubmitEvidence(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"), req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// ResolveDispute handles POST /disputes/{id}/resolve.
func (s *Server) ResolveDispute(c *fiber.Ctx) error {
	var req orchestrator.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	if err := validation.Struct(req); err != nil {
		return WithError(c, err)
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.ResolveDispute(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"), req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}
