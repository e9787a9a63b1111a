package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestCheck_WindowFillAndReset(t *testing.T) {
	store := NewStore(nil)

	// 100 requests within the window are allowed with strictly
	// decreasing remaining quota.
	prev := 100
	for i := 0; i < 100; i++ {
		res := store.Check("203.0.113.9", ClassGeneral, testNow.Add(time.Duration(i)*100*time.Millisecond))
		if !res.Allowed {
			t.Fatalf("request %d unexpectedly denied", i+1)
		}
		if res.Remaining >= prev {
			t.Fatalf("request %d: remaining %d not strictly decreasing from %d", i+1, res.Remaining, prev)
		}
		prev = res.Remaining
	}

	// The 101st in the same window is denied with a retry hint.
	res := store.Check("203.0.113.9", ClassGeneral, testNow.Add(30*time.Second))
	if res.Allowed {
		t.Fatal("101st request should be denied")
	}
	if res.RetryAfterSec < 1 || res.RetryAfterSec > 30 {
		t.Errorf("unexpected retry_after: %d", res.RetryAfterSec)
	}

	// Past the window boundary the counter resets to a fresh budget.
	res = store.Check("203.0.113.9", ClassGeneral, testNow.Add(60*time.Second+time.Millisecond))
	if !res.Allowed {
		t.Fatal("request after window elapsed should be allowed")
	}
	if res.Remaining != 99 {
		t.Errorf("expected remaining 99 after reset, got %d", res.Remaining)
	}
}

func TestCheck_ClassBudgetsAreIndependent(t *testing.T) {
	store := NewStore(nil)

	for i := 0; i < 20; i++ {
		res := store.Check("u-1", ClassAuth, testNow)
		if !res.Allowed {
			t.Fatalf("auth request %d unexpectedly denied", i+1)
		}
	}
	if res := store.Check("u-1", ClassAuth, testNow); res.Allowed {
		t.Error("21st auth request should be denied")
	}

	// Same identity, different class: untouched budget.
	if res := store.Check("u-1", ClassFinancial, testNow); !res.Allowed || res.Remaining != 29 {
		t.Errorf("financial budget should be independent, got %+v", res)
	}
}

func TestCheck_DeniedRequestStillCountsAsAttempt(t *testing.T) {
	store := NewStore(map[Class]Policy{
		ClassGeneral: {Window: 60 * time.Second, MaxRequests: 2},
	})

	store.Check("ip", ClassGeneral, testNow)
	store.Check("ip", ClassGeneral, testNow)
	store.Check("ip", ClassGeneral, testNow) // denied

	if got := store.Attempts("ip", testNow); got != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", got)
	}
}

func TestAttempts_ExpiredWindowReadsZero(t *testing.T) {
	store := NewStore(nil)
	store.Check("ip", ClassGeneral, testNow)

	if got := store.Attempts("ip", testNow.Add(61*time.Second)); got != 0 {
		t.Errorf("expected 0 attempts after window elapsed, got %d", got)
	}
}

func TestGC_DropsStaleEntries(t *testing.T) {
	store := NewStore(nil)
	store.maxEntries = 10

	for i := 0; i < 20; i++ {
		store.Check(fmt.Sprintf("ip-%d", i), ClassGeneral, testNow)
	}
	before := store.Size()

	// All existing entries are now older than twice their window; the
	// next check above the threshold sweeps them.
	store.Check("fresh", ClassGeneral, testNow.Add(3*time.Minute))
	after := store.Size()

	if after >= before {
		t.Errorf("expected gc to shrink store, before=%d after=%d", before, after)
	}
}

func TestClassForPath_FirstMatchWins(t *testing.T) {
	tests := []struct {
		path string
		want Class
	}{
		{"/api/v1/auth/login", ClassAuth},
		{"/api/v1/admin/security-events", ClassAdmin},
		{"/api/v1/wallet/transactions", ClassFinancial},
		{"/api/v1/contributions", ClassFinancial},
		{"/api/v1/payouts/123", ClassFinancial},
		{"/api/v1/groups", ClassGeneral},
		{"/", ClassGeneral},
	}
	for _, tt := range tests {
		if got := ClassForPath(tt.path); got != tt.want {
			t.Errorf("ClassForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestIsExempt_HealthMarkers(t *testing.T) {
	for _, path := range []string{"/health", "/healthz", "/api/v1/status"} {
		if !IsExempt(path) {
			t.Errorf("expected %q to be exempt", path)
		}
	}
	if IsExempt("/api/v1/groups") {
		t.Error("group endpoint should not be exempt")
	}
}
