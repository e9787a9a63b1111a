package risk

import (
	"net"
	"strings"
	"time"
)

// ============================================================
// Composite 0-100 risk score per inbound request, built from
// static address/agent signals and the identity's short-term
// request history. The score gates fraud-prone traffic; the
// decision thresholds are applied by the middleware caller.
// ============================================================

// Decision thresholds. At or above BlockThreshold the request is
// rejected; at or above FlagThreshold it is allowed but audited.
const (
	BlockThreshold = 90
	FlagThreshold  = 70
)

// Signal weights.
const (
	weightVPNRange     = 20
	weightMaliciousIP  = 50
	weightBotAgent     = 30
	weightShortAgent   = 25
	weightBurst        = 40
	weightHeavyBurst   = 60
	weightNightTraffic = 10
)

// Attempt thresholds over the trailing minute. Both contribute
// independently: a heavy burst accrues both weights.
const (
	burstAttempts      = 10
	heavyBurstAttempts = 20
)

// Signals carries the per-request inputs collected by the HTTP layer.
type Signals struct {
	IP             string
	UserAgent      string
	AcceptLanguage string
	AcceptEncoding string
	UserID         string // empty when unauthenticated
	Path           string
	Method         string
}

// Identity is the key used for attempt history: the authenticated user
// when present, otherwise the source address.
func (s Signals) Identity() string {
	if s.UserID != "" {
		return s.UserID
	}
	return s.IP
}

// AttemptSource reports an identity's request count over the trailing
// minute. Satisfied by the ratelimit store.
type AttemptSource interface {
	Attempts(identity string, now time.Time) int
}

// Scorer computes risk scores against configured address lists and a
// shared attempt history.
type Scorer struct {
	attempts     AttemptSource
	vpnRanges    []*net.IPNet
	maliciousIPs map[string]bool
}

// NewScorer creates a scorer. vpnCIDRs entries that fail to parse are
// skipped; the address lists are advisory heuristics, not ACLs.
func NewScorer(attempts AttemptSource, vpnCIDRs, maliciousIPs []string) *Scorer {
	s := &Scorer{
		attempts:     attempts,
		maliciousIPs: make(map[string]bool, len(maliciousIPs)),
	}
	for _, cidr := range vpnCIDRs {
		if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
			s.vpnRanges = append(s.vpnRanges, ipnet)
		}
	}
	for _, ip := range maliciousIPs {
		s.maliciousIPs[ip] = true
	}
	return s
}

// Score accumulates the additive signal weights and clamps to [0, 100].
// The returned reasons name each signal that fired, for audit records.
func (s *Scorer) Score(sig Signals, now time.Time) (int, []string) {
	score := 0
	var reasons []string

	if s.inVPNRange(sig.IP) {
		score += weightVPNRange
		reasons = append(reasons, "vpn_range")
	}
	if s.maliciousIPs[sig.IP] {
		score += weightMaliciousIP
		reasons = append(reasons, "malicious_ip")
	}

	agent := strings.ToLower(sig.UserAgent)
	if agent == "" || strings.Contains(agent, "bot") || strings.Contains(agent, "crawler") {
		score += weightBotAgent
		reasons = append(reasons, "bot_agent")
	}
	if len(sig.UserAgent) < 10 {
		score += weightShortAgent
		reasons = append(reasons, "short_agent")
	}

	if s.attempts != nil {
		attempts := s.attempts.Attempts(sig.Identity(), now)
		if attempts > burstAttempts {
			score += weightBurst
			reasons = append(reasons, "burst")
		}
		if attempts > heavyBurstAttempts {
			score += weightHeavyBurst
			reasons = append(reasons, "heavy_burst")
		}
	}

	hour := now.Hour()
	if hour >= 2 && hour <= 5 {
		score += weightNightTraffic
		reasons = append(reasons, "night_traffic")
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

func (s *Scorer) inVPNRange(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipnet := range s.vpnRanges {
		if ipnet.Contains(parsed) {
			return true
		}
	}
	return false
}
