package risk

import (
	"testing"
	"time"
)

// middayUTC avoids the night-traffic bonus in tests that don't want it.
var middayUTC = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fixedAttempts int

func (f fixedAttempts) Attempts(identity string, now time.Time) int { return int(f) }

func TestScore_CleanRequestIsZero(t *testing.T) {
	scorer := NewScorer(fixedAttempts(0), nil, nil)
	score, reasons := scorer.Score(Signals{
		IP:        "198.51.100.7",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0",
	}, middayUTC)

	if score != 0 {
		t.Errorf("expected score 0, got %d (reasons %v)", score, reasons)
	}
}

func TestScore_ClampsAt100(t *testing.T) {
	// Empty agent (+30 +25), malicious IP (+50), 25 attempts (+40 +60):
	// raw 205, clamped to exactly 100.
	scorer := NewScorer(fixedAttempts(25), nil, []string{"203.0.113.66"})
	score, _ := scorer.Score(Signals{IP: "203.0.113.66"}, middayUTC)

	if score != 100 {
		t.Errorf("expected clamped score 100, got %d", score)
	}
}

func TestScore_AdditiveAgentSignals(t *testing.T) {
	scorer := NewScorer(fixedAttempts(0), nil, nil)

	// "bot" and short length both fire.
	score, reasons := scorer.Score(Signals{IP: "198.51.100.7", UserAgent: "bot"}, middayUTC)
	if score != 55 {
		t.Errorf("expected 55 for short bot agent, got %d (reasons %v)", score, reasons)
	}

	// Long crawler agent: only the bot rule fires.
	score, _ = scorer.Score(Signals{IP: "198.51.100.7", UserAgent: "ExampleCrawler/2.1 (+https://example.com)"}, middayUTC)
	if score != 30 {
		t.Errorf("expected 30 for long crawler agent, got %d", score)
	}
}

func TestScore_BurstThresholdsAreIndependent(t *testing.T) {
	agent := "Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0"

	score, _ := NewScorer(fixedAttempts(11), nil, nil).Score(Signals{IP: "1.2.3.4", UserAgent: agent}, middayUTC)
	if score != 40 {
		t.Errorf("expected 40 at 11 attempts, got %d", score)
	}

	score, _ = NewScorer(fixedAttempts(21), nil, nil).Score(Signals{IP: "1.2.3.4", UserAgent: agent}, middayUTC)
	if score != 100 {
		t.Errorf("expected 100 (40+60 clamped) at 21 attempts, got %d", score)
	}
}

func TestScore_VPNRange(t *testing.T) {
	scorer := NewScorer(fixedAttempts(0), []string{"10.8.0.0/16"}, nil)
	agent := "Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0"

	score, reasons := scorer.Score(Signals{IP: "10.8.4.2", UserAgent: agent}, middayUTC)
	if score != 20 {
		t.Errorf("expected 20 for VPN range, got %d (reasons %v)", score, reasons)
	}
	score, _ = scorer.Score(Signals{IP: "10.9.4.2", UserAgent: agent}, middayUTC)
	if score != 0 {
		t.Errorf("expected 0 outside VPN range, got %d", score)
	}
}

func TestScore_NightTrafficWindow(t *testing.T) {
	scorer := NewScorer(fixedAttempts(0), nil, nil)
	agent := "Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0"

	tests := []struct {
		hour int
		want int
	}{
		{1, 0},
		{2, 10},
		{5, 10},
		{6, 0},
	}
	for _, tt := range tests {
		at := time.Date(2025, 3, 10, tt.hour, 30, 0, 0, time.UTC)
		score, _ := scorer.Score(Signals{IP: "198.51.100.7", UserAgent: agent}, at)
		if score != tt.want {
			t.Errorf("hour %d: expected %d, got %d", tt.hour, tt.want, score)
		}
	}
}

func TestIdentity_PrefersUserID(t *testing.T) {
	sig := Signals{IP: "1.2.3.4", UserID: "42"}
	if sig.Identity() != "42" {
		t.Errorf("expected user id identity, got %s", sig.Identity())
	}
	sig.UserID = ""
	if sig.Identity() != "1.2.3.4" {
		t.Errorf("expected ip identity, got %s", sig.Identity())
	}
}

func TestDeviceFingerprint_Deterministic(t *testing.T) {
	sig := Signals{
		IP:             "198.51.100.7",
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		AcceptLanguage: "es-MX,es;q=0.9",
		AcceptEncoding: "gzip, br",
	}

	a := DeviceFingerprint(sig)
	b := DeviceFingerprint(sig)
	if a != b {
		t.Errorf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a)
	}

	sig.AcceptLanguage = "en-US"
	if DeviceFingerprint(sig) == a {
		t.Error("fingerprint should change when a header changes")
	}
}

func TestDeviceType(t *testing.T) {
	tests := []struct {
		agent string
		want  string
	}{
		{"", DeviceUnknown},
		{"Mozilla/5.0 (iPad; CPU OS 16_0)", DeviceTablet},
		{"Mozilla/5.0 (Linux; Android 14; Tablet)", DeviceTablet},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile/15E148", DeviceMobile},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", DeviceMobile},
		{"Mozilla/5.0 (X11; Linux x86_64) Firefox/125.0", DeviceDesktop},
	}
	for _, tt := range tests {
		if got := DeviceType(tt.agent); got != tt.want {
			t.Errorf("DeviceType(%q) = %s, want %s", tt.agent, got, tt.want)
		}
	}
}
