package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		expected   string
	}{
		{
			name:       "first forwarded entry wins",
			forwarded:  "203.0.113.7, 10.0.0.1",
			realIP:     "198.51.100.2",
			remoteAddr: "10.0.0.1:4321",
			expected:   "203.0.113.7",
		},
		{
			name:       "garbage forwarded entry falls through to real ip",
			forwarded:  "not-an-ip",
			realIP:     "198.51.100.2",
			remoteAddr: "10.0.0.1:4321",
			expected:   "198.51.100.2",
		},
		{
			name:       "no headers uses remote host without port",
			remoteAddr: "192.0.2.9:4321",
			expected:   "192.0.2.9",
		},
		{
			name:       "unparseable remote addr returned verbatim",
			remoteAddr: "unix-socket",
			expected:   "unix-socket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr

			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.expected, GetClientIP(r))
		})
	}
}
