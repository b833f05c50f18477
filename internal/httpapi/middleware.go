package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.opentelemetry.io/otel/attribute"

	"github.com/brackwater/payrail/internal/merrors"
	"github.com/brackwater/payrail/internal/mlog"
	"github.com/brackwater/payrail/internal/mtrace"
	"github.com/brackwater/payrail/internal/ratelimit"
)

const (
	headerMerchantID     = "X-Merchant-Id"
	headerIdempotencyKey = "Idempotency-Key"
	headerCorrelationID  = "X-Correlation-Id"
	headerRole           = "X-Role"
)

// withCorrelationID extracts X-Correlation-Id or generates one, stores it
// on the request context, and echoes it on every response (spec.md §6).
func withCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(headerCorrelationID)

		ctx := mtrace.WithCorrelationID(c.UserContext(), cid)
		cid = mtrace.CorrelationID(ctx)
		ctx = mtrace.WithCorrelationID(ctx, cid)

		c.SetUserContext(ctx)
		c.Set(headerCorrelationID, cid)

		return c.Next()
	}
}

// withTracing wraps the whole request in a span named after its route,
// mirroring the teacher's HandleSpanError call-per-use-case pattern at
// the transport boundary instead of per command.
func withTracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, endSpan := mtrace.StartSpan(c.UserContext(), c.Method()+" "+c.Path())
		c.SetUserContext(ctx)

		err := c.Next()

		mtrace.SpanFromContext(ctx).SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.route", c.Path()),
			attribute.Int("http.status_code", c.Response().StatusCode()),
		)

		endSpan(err)

		return err
	}
}

// withRequestLogging logs one line per request at Info level, recording
// the recent lines in-process for the /metrics endpoint.
func withRequestLogging(recorder *metricsRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		logger := mlog.FromContext(c.UserContext())
		status := c.Response().StatusCode()
		elapsed := time.Since(start)

		logger.Infof("%s %s -> %d (%s)", c.Method(), c.Path(), status, elapsed)

		recorder.record(c.Method(), c.Path(), status, elapsed)

		return err
	}
}

// withRecover converts a panic into a 500 using fiber's recover
// middleware, whose default handler writes the panic value and stack
// trace to stderr.
func withRecover() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
	})
}

// requireMerchantHeader enforces X-Merchant-Id and Idempotency-Key on
// every mutating call (spec.md §6).
func requireMerchantHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(headerMerchantID) == "" {
			return WithError(c, merrors.UnauthorizedError{Message: "X-Merchant-Id header is required"})
		}

		if c.Get(headerIdempotencyKey) == "" {
			return WithError(c, merrors.ValidationError{Message: "Idempotency-Key header is required"})
		}

		return c.Next()
	}
}

// withRateLimit throttles mutating calls per merchant, using the
// X-Merchant-Id header already validated by requireMerchantHeader as the
// limiter key.
func withRateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		merchantID := c.Get(headerMerchantID)
		if merchantID == "" {
			return c.Next()
		}

		allowed, err := limiter.Allow(c.UserContext(), merchantID)
		if err != nil {
			mlog.FromContext(c.UserContext()).Warnf("rate limiter error for merchant %s: %v", merchantID, err)
			return c.Next()
		}

		if !allowed {
			return WithError(c, merrors.RateLimitExceededError{MerchantID: merchantID})
		}

		return c.Next()
	}
}

// requestContext builds an orchestrator.RequestContext from the ambient
// headers. idempotencyKey is required on mutating calls; callers on
// read-only routes ignore it.
func requestContext(c *fiber.Ctx) (merchantID, role, idemKey string) {
	role = c.Get(headerRole, "operator")
	return c.Get(headerMerchantID), role, c.Get(headerIdempotencyKey)
}
