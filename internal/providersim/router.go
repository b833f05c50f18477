package providersim

import (
	"github.com/gofiber/fiber/v2"
)

// Router wires a Simulator behind the RPC contract providerclient.Client
// calls (spec.md §4.7) plus an admin surface for the fault-injection
// knobs spec.md §9 calls out.
func (s *Simulator) Router() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	providers := app.Group("/providers/:id")
	providers.Post("/authorize", s.handleAuthorize)
	providers.Post("/capture", s.handleCapture)
	providers.Post("/refund", s.handleRefund)

	admin := app.Group("/admin/providers/:id")
	admin.Get("/config", s.handleGetConfig)
	admin.Put("/config", s.handleSetConfig)
	admin.Get("/stats", s.handleStats)

	return app
}

type authorizeRequest struct {
	PaymentID     string `json:"payment_id"`
	Amount        int    `json:"amount"`
	Currency      string `json:"currency"`
	PAN           string `json:"pan"`
	Expiry        string `json:"expiry"`
	MerchantID    string `json:"merchant_id"`
	CorrelationID string `json:"correlation_id"`
}

type captureOrRefundRequest struct {
	PaymentID     string `json:"payment_id"`
	ProviderRef   string `json:"provider_ref"`
	Amount        int    `json:"amount"`
	CorrelationID string `json:"correlation_id"`
}

type rpcResponse struct {
	Success     bool   `json:"success"`
	ProviderRef string `json:"provider_ref,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (s *Simulator) handleAuthorize(c *fiber.Ctx) error {
	providerID := c.Params("id")

	var req authorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ref, success, reason, timedOut, errored := s.Authorize(c.UserContext(), providerID, req.PaymentID, req.Amount, req.Currency, req.CorrelationID)

	if timedOut {
		return fiber.NewError(fiber.StatusGatewayTimeout, "provider timeout")
	}

	if errored {
		return fiber.NewError(fiber.StatusBadGateway, "provider error")
	}

	return c.JSON(rpcResponse{Success: success, ProviderRef: ref, Reason: reason})
}

func (s *Simulator) handleCapture(c *fiber.Ctx) error {
	providerID := c.Params("id")

	var req captureOrRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	success, reason, timedOut, errored := s.Capture(c.UserContext(), providerID, req.PaymentID, req.ProviderRef, req.Amount, req.CorrelationID)

	if timedOut {
		return fiber.NewError(fiber.StatusGatewayTimeout, "provider timeout")
	}

	if errored {
		return fiber.NewError(fiber.StatusBadGateway, "provider error")
	}

	return c.JSON(rpcResponse{Success: success, ProviderRef: req.ProviderRef, Reason: reason})
}

func (s *Simulator) handleRefund(c *fiber.Ctx) error {
	providerID := c.Params("id")

	var req captureOrRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	success, reason, timedOut, errored := s.Refund(c.UserContext(), providerID, req.PaymentID, req.ProviderRef, req.Amount, req.CorrelationID)

	if timedOut {
		return fiber.NewError(fiber.StatusGatewayTimeout, "provider timeout")
	}

	if errored {
		return fiber.NewError(fiber.StatusBadGateway, "provider error")
	}

	return c.JSON(rpcResponse{Success: success, ProviderRef: req.ProviderRef, Reason: reason})
}

func (s *Simulator) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.configFor(c.Params("id")))
}

func (s *Simulator) handleSetConfig(c *fiber.Ctx) error {
	var cfg FailureConfig
	if err := c.BodyParser(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.SetConfig(c.Params("id"), cfg)

	return c.JSON(cfg)
}

func (s *Simulator) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.Stats(c.Params("id")))
}
