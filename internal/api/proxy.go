package api

import (
	"net"
	"net/http"
	"strings"
)

// Query parameters consumed by the gateway itself; everything else is
// forwarded to the SFU untouched, so new SFU-facing parameters need no
// gateway change.
var blacklistedQueryParams = []string{"region", "country"}

// filterQueryParams strips gateway-only parameters from a raw query string,
// preserving order and encoding of the remaining segments.
func filterQueryParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	parts := strings.Split(rawQuery, "&")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		blocked := false
		for _, name := range blacklistedQueryParams {
			if strings.HasPrefix(part, name+"=") {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "&")
}

// buildForwardedFor appends the peer IP to an existing chain, oldest first.
// Each hop appends the address of the party it received the request from.
func buildForwardedFor(existing, peerIP string) string {
	if existing == "" {
		return peerIP
	}
	return existing + ", " + peerIP
}

// forwardedFor computes the X-Forwarded-For value sent to the SFU.
//
// When the upstream peer is a trusted reverse proxy, the inbound chain is
// kept and the peer's address appended. Otherwise any inbound chain could be
// client-controlled, so it is discarded and the chain is just the peer
// address.
func forwardedFor(r *http.Request, trustProxy bool) string {
	peer := peerIP(r)
	if !trustProxy {
		return peer
	}
	return buildForwardedFor(r.Header.Get("X-Forwarded-For"), peer)
}

// peerIP is the address of the immediate connection peer. Deliberately not
// gin's ClientIP: that already interprets forwarding headers, and the chain
// must record who we actually heard from.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
