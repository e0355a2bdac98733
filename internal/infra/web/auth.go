package web

import (
	"net"
	"net/http"
	"strings"
)

// bearerToken returns the credential of an "Authorization: Bearer <token>"
// header, or "" when there is none.
func bearerToken(r *http.Request) string {
	hdr := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(hdr[7:])
}

// clientKey identifies an anonymous caller for rate limiting. RealIP has
// already replaced RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
