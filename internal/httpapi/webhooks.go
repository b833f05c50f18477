package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

// ReceiveWebhook handles POST /webhooks/provider.
func (s *Server) ReceiveWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Webhook-Signature")

	result, err := s.webhook.Receive(c.UserContext(), c.Body(), signature)
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(result)
}
