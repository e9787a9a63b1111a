package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"latanda-core/internal/config"
	"latanda-core/internal/core/ratelimit"
	"latanda-core/internal/core/risk"
	"latanda-core/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "security-test-secret"

// browserAgent is long enough to trip neither agent heuristic
const browserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

// newGatedApp mirrors the production middleware order: tolerant auth
// pass first, then limiter, then risk gate.
func newGatedApp(store *ratelimit.Store, scorer *risk.Scorer) *fiber.App {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	app := fiber.New()
	app.Use(OptionalAuth(cfg))
	app.Use(RateLimit(store))
	app.Use(RiskGate(scorer, nil))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/v1/groups", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func getAs(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("User-Agent", browserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func accessToken(t *testing.T, userID uint, username string) string {
	t.Helper()
	token, err := jwt.GenerateAccessToken(userID, username, "MEMBER", testSecret, 15)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestRateLimit_AuthenticatedTrafficKeyedByUser(t *testing.T) {
	store := ratelimit.NewStore(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassGeneral: {Window: time.Minute, MaxRequests: 2},
	})
	scorer := risk.NewScorer(store, nil, nil)
	app := newGatedApp(store, scorer)

	alice := accessToken(t, 1, "alice")
	bob := accessToken(t, 2, "bob")

	// Alice exhausts her own budget.
	for i := 0; i < 2; i++ {
		if status, _ := getAs(t, app, "/api/v1/groups", alice); status != fiber.StatusOK {
			t.Fatalf("alice request %d: status %d", i+1, status)
		}
	}
	status, body := getAs(t, app, "/api/v1/groups", alice)
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("alice over budget: status %d", status)
	}
	if !strings.Contains(body, "rate_limited") {
		t.Errorf("expected rate_limited code, got %s", body)
	}

	// Bob shares Alice's source address but has his own budget.
	if status, _ := getAs(t, app, "/api/v1/groups", bob); status != fiber.StatusOK {
		t.Fatalf("bob behind same address: status %d", status)
	}

	// Anonymous traffic falls back to the address identity.
	if status, _ := getAs(t, app, "/api/v1/groups", ""); status != fiber.StatusOK {
		t.Fatalf("anonymous request: status %d", status)
	}
}

func TestSecurityGates_HealthNeverCountedOrScored(t *testing.T) {
	store := ratelimit.NewStore(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassGeneral: {Window: time.Minute, MaxRequests: 1},
	})
	// The test client's source address is listed as malicious, so any
	// scored path blocks outright.
	scorer := risk.NewScorer(store, nil, []string{"0.0.0.0"})
	app := newGatedApp(store, scorer)

	// Health probes sail past a budget of one and leave no counters.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("health request %d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("health request %d: status %d", i+1, resp.StatusCode)
		}
	}
	if store.Size() != 0 {
		t.Errorf("health traffic was counted: %d store entries", store.Size())
	}

	// The same client on a scored path is blocked.
	req := httptest.NewRequest("GET", "/api/v1/groups", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("scored request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("scored path from malicious address: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "risk_blocked") {
		t.Errorf("expected risk_blocked code, got %s", body)
	}
}
