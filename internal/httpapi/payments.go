package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/brackwater/payrail/internal/orchestrator"
	"github.com/brackwater/payrail/internal/validation"
)

func paginationParams(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// CreatePayment handles POST /payment-intents.
func (s *Server) CreatePayment(c *fiber.Ctx) error {
	var req orchestrator.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	if err := validation.Struct(req); err != nil {
		return WithError(c, err)
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.CreatePayment(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// GetPayment handles GET /payment-intents/{id}.
func (s *Server) GetPayment(c *fiber.Ctx) error {
	body, err := s.orch.GetPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// ListPayments handles GET /payment-intents.
func (s *Server) ListPayments(c *fiber.Ctx) error {
	limit, offset := paginationParams(c)

	body, err := s.orch.ListPayments(c.UserContext(), c.Query("state"), c.Query("merchant_id"), limit, offset)
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(body)
}

// AuthorizePayment handles POST /payment-intents/{id}/authorize.
func (s *Server) AuthorizePayment(c *fiber.Ctx) error {
	var req orchestrator.AuthorizePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, badRequest(err))
	}

	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.Authorize(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"), req)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// CapturePayment handles POST /payment-intents/{id}/capture.
func (s *Server) CapturePayment(c *fiber.Ctx) error {
	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.Capture(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}

// CancelPayment handles POST /payment-intents/{id}/cancel.
func (s *Server) CancelPayment(c *fiber.Ctx) error {
	merchantID, role, idemKey := requestContext(c)

	body, status, err := s.orch.Cancel(c.UserContext(), orchestrator.RequestContext{MerchantID: merchantID, Role: role, IdempotencyKey: idemKey}, c.Params("id"))
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(status).JSON(body)
}
