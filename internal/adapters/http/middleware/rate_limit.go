package middleware

import (
	"strconv"
	"time"

	"latanda-core/internal/core/ratelimit"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RateLimit enforces the per-class sliding-window budget for every
// request. The store is per-process, best-effort state: the reverse
// proxy remains the binding authority for global quotas.
//
// Identity is the authenticated user when auth already ran, otherwise
// the source address. Health/status endpoints are never counted.
func RateLimit(store *ratelimit.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if ratelimit.IsExempt(path) {
			return c.Next()
		}

		identity := c.IP()
		if userID, ok := c.Locals("userID").(uint); ok {
			identity = strconv.FormatUint(uint64(userID), 10)
		}

		class := ratelimit.ClassForPath(path)
		res := store.Check(identity, class, time.Now())

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetMs, 10))

		if !res.Allowed {
			c.Set("Retry-After", strconv.Itoa(res.RetryAfterSec))
			return response.TooManyRequests(c, "rate_limited", "Too many requests, please slow down")
		}

		return c.Next()
	}
}
