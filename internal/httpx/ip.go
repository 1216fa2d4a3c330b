// Package httpx contains HTTP request helpers that do not belong to any
// particular handler.
package httpx

import (
	"net"
	"net/http"
	"strings"
)

// forwardHeaders are checked in order when resolving the client address
// behind a reverse proxy.
var forwardHeaders = []string{"X-Forwarded-For", "X-Real-Ip"}

// ClientIP resolves the originating client address of r. Forwarded headers
// win over RemoteAddr, taking the first valid address of a comma-separated
// list. Falls back to the bare RemoteAddr host, or "0.0.0.0" when even that
// cannot be parsed.
func ClientIP(r *http.Request) string {
	for _, h := range forwardHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		first := strings.TrimSpace(strings.Split(v, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if ip := net.ParseIP(r.RemoteAddr); ip != nil {
			return ip.String()
		}
		return "0.0.0.0"
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return "0.0.0.0"
}
