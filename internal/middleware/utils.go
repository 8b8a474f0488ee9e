package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from the request, preferring
// the proxy and load-balancer headers over the raw remote address. Only
// values that parse as an IP are trusted; anything else falls through to
// the next source.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First entry is the originating client; later hops append their own.
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])

		if net.ParseIP(first) != nil {
			return first
		}
	}

	if realIP := r.Header.Get("X-Real-IP"); net.ParseIP(realIP) != nil {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)

	if err != nil {
		return r.RemoteAddr
	}

	return host
}
