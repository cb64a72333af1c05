package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders lists the proxy headers consulted by FromRequest, highest
// priority first. X-Forwarded-For contributes its first valid address.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// FromRequest returns the client address using DefaultHeaders.
func FromRequest(r *http.Request) string {
	return resolve(r, DefaultHeaders)
}

// resolve falls back to RemoteAddr when no header carries a valid address.
// Headers are only trustworthy behind a proxy that overwrites them.
func resolve(r *http.Request, headers []string) string {
	for _, h := range headers {
		for _, v := range r.Header.Values(h) {
			for candidate := range strings.SplitSeq(v, ",") {
				if ip := normalize(candidate); ip != "" {
					return ip
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

// normalize returns the canonical form of s, or "" when s is not an address.
func normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
