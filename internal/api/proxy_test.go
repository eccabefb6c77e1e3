package api

import (
	"net/http/httptest"
	"testing"
)

func TestFilterQueryParams(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"passes through all", "webRTC=true&recordingAddress=http%3A%2F%2Flocalhost", "webRTC=true&recordingAddress=http%3A%2F%2Flocalhost"},
		{"removes region", "webRTC=true&region=eu&recordingAddress=http%3A%2F%2Flocalhost", "webRTC=true&recordingAddress=http%3A%2F%2Flocalhost"},
		{"removes country", "webRTC=true&country=FR&recordingAddress=http%3A%2F%2Flocalhost", "webRTC=true&recordingAddress=http%3A%2F%2Flocalhost"},
		{"removes both", "region=eu&country=FR&webRTC=true", "webRTC=true"},
		{"region only", "region=us", ""},
		{"empty", "", ""},
		{"preserves unknown params", "newParam=value&anotherNew=123&region=eu", "newParam=value&anotherNew=123"},
		{"preserves order", "a=1&region=x&b=2", "a=1&b=2"},
		{"prefix match only", "regionX=1&countryside=2", "regionX=1&countryside=2"},
	}
	for _, tc := range cases {
		if got := filterQueryParams(tc.in); got != tc.want {
			t.Errorf("%s: filterQueryParams(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestBuildForwardedFor(t *testing.T) {
	if got := buildForwardedFor("", "192.168.1.100"); got != "192.168.1.100" {
		t.Errorf("no existing chain: got %q", got)
	}
	if got := buildForwardedFor("10.0.0.1", "192.168.1.100"); got != "10.0.0.1, 192.168.1.100" {
		t.Errorf("existing entry: got %q", got)
	}
	if got := buildForwardedFor("10.0.0.1, 172.16.0.1", "192.168.1.100"); got != "10.0.0.1, 172.16.0.1, 192.168.1.100" {
		t.Errorf("existing chain: got %q", got)
	}
}

func TestForwardedForUntrustedIgnoresInboundChain(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/channel", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("X-Forwarded-For", "spoofed-ip")

	if got := forwardedFor(req, false); got != "203.0.113.7" {
		t.Errorf("untrusted mode: got %q, want only the peer address", got)
	}
}

func TestForwardedForTrustedAppendsPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/channel", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")

	if got := forwardedFor(req, true); got != "10.0.0.1, 172.16.0.1, 203.0.113.7" {
		t.Errorf("trusted mode: got %q", got)
	}
}

func TestForwardedForTrustedWithoutInboundChain(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/channel", nil)
	req.RemoteAddr = "203.0.113.7:54321"

	if got := forwardedFor(req, true); got != "203.0.113.7" {
		t.Errorf("trusted mode without inbound chain: got %q", got)
	}
}

func TestPeerIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	if got := peerIP(req); got != "192.0.2.1" {
		t.Errorf("host:port peer: got %q", got)
	}

	req.RemoteAddr = "192.0.2.1"
	if got := peerIP(req); got != "192.0.2.1" {
		t.Errorf("bare host peer: got %q", got)
	}

	req.RemoteAddr = ""
	if got := peerIP(req); got != "unknown" {
		t.Errorf("empty peer: got %q", got)
	}
}
