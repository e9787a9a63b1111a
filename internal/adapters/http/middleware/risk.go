package middleware

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"latanda-core/internal/adapters/persistence/models"
	"latanda-core/internal/adapters/persistence/repositories"
	"latanda-core/internal/core/ratelimit"
	"latanda-core/internal/core/risk"
	"latanda-core/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// auditTimeout bounds the best-effort security event insert so a slow
// database can never stall the request path for long.
const auditTimeout = 2 * time.Second

// RiskGate scores every request and applies the decision thresholds:
// at or above the block threshold the request is rejected, at or above
// the flag threshold it proceeds but an audit record is persisted.
// Audit failures are swallowed — scoring never depends on storage.
func RiskGate(scorer *risk.Scorer, events repositories.SecurityEventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ratelimit.IsExempt(c.Path()) {
			return c.Next()
		}

		sig := risk.Signals{
			IP:             c.IP(),
			UserAgent:      c.Get("User-Agent"),
			AcceptLanguage: c.Get("Accept-Language"),
			AcceptEncoding: c.Get("Accept-Encoding"),
			Path:           c.Path(),
			Method:         c.Method(),
		}
		if userID, ok := c.Locals("userID").(uint); ok {
			sig.UserID = strconv.FormatUint(uint64(userID), 10)
		}

		score, reasons := scorer.Score(sig, time.Now())
		c.Locals("riskScore", score)

		blocked := score >= risk.BlockThreshold
		if score >= risk.FlagThreshold {
			auditEvent(events, sig, score, reasons, blocked)
		}
		if blocked {
			return response.TooManyRequests(c, "risk_blocked", "Request blocked by security policy")
		}

		return c.Next()
	}
}

// auditEvent persists a high-risk audit record, best effort.
func auditEvent(events repositories.SecurityEventRepository, sig risk.Signals, score int, reasons []string, blocked bool) {
	if events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	event := &models.SecurityEvent{
		Identity:    sig.Identity(),
		IPAddress:   sig.IP,
		UserAgent:   sig.UserAgent,
		Endpoint:    sig.Path,
		Method:      sig.Method,
		RiskScore:   score,
		Reason:      strings.Join(reasons, ","),
		DeviceType:  risk.DeviceType(sig.UserAgent),
		Fingerprint: risk.DeviceFingerprint(sig),
		Blocked:     blocked,
	}
	if err := events.Create(ctx, event); err != nil {
		log.Printf("⚠️ Failed to persist security event (identity=%s score=%d): %v", sig.Identity(), score, err)
	}
}
