package ratelimit

import "strings"

// classRule maps an endpoint prefix to a limiter class.
type classRule struct {
	Prefix string
	Class  Class
}

// classRules is matched in order, first match wins. Unmatched paths fall
// to the general class.
var classRules = []classRule{
	{Prefix: "/api/v1/auth", Class: ClassAuth},
	{Prefix: "/api/v1/admin", Class: ClassAdmin},
	{Prefix: "/api/v1/wallet", Class: ClassFinancial},
	{Prefix: "/api/v1/contributions", Class: ClassFinancial},
	{Prefix: "/api/v1/payouts", Class: ClassFinancial},
}

// healthMarkers exempt a path from rate limiting and risk scoring
// entirely. Health probes must never be throttled or counted.
var healthMarkers = []string{"/health", "/status"}

// ClassForPath resolves the limiter class for an endpoint path.
func ClassForPath(path string) Class {
	for _, rule := range classRules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Class
		}
	}
	return ClassGeneral
}

// IsExempt reports whether the path is a health/status endpoint.
func IsExempt(path string) bool {
	for _, marker := range healthMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}
