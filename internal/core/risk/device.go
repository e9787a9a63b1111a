package risk

import (
	"fmt"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Device classes returned by DeviceType.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// fingerprintDelimiter joins the header values hashed into a fingerprint.
const fingerprintDelimiter = "|"

// DeviceFingerprint hashes the client's header profile into an opaque
// grouping key. Advisory only: used for analytics and audit correlation,
// never for authorization decisions.
func DeviceFingerprint(sig Signals) string {
	material := strings.Join([]string{
		sig.UserAgent,
		sig.AcceptLanguage,
		sig.IP,
		sig.AcceptEncoding,
	}, fingerprintDelimiter)

	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(material)))
}

// DeviceType classifies the client agent by substring match.
func DeviceType(agent string) string {
	if agent == "" {
		return DeviceUnknown
	}
	lower := strings.ToLower(agent)
	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		return DeviceTablet
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "android") || strings.Contains(lower, "iphone"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
