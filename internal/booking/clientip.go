package booking

import (
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no forwarding header is present.
// All such requests share one rate limit bucket.
const UnknownClient = "unknown"

// ClientIdentifier picks the rate limit identity for r: the first
// X-Forwarded-For entry, then X-Real-IP, then UnknownClient.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
