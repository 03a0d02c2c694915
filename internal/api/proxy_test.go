package api

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "untrusted peer keeps its address", remote: "203.0.113.9:4000", headers: map[string]string{"X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.9:4000"},
		{name: "untrusted peer ignores X-Real-IP", remote: "203.0.113.9:4000", headers: map[string]string{"X-Real-IP": "198.51.100.1"}, want: "203.0.113.9:4000"},
		{name: "trusted peer, single hop", remote: "192.0.2.1:4000", headers: map[string]string{"X-Forwarded-For": "198.51.100.1"}, want: "198.51.100.1"},
		{name: "trusted chain skips inner proxies", remote: "10.1.1.1:4000", headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 198.51.100.7, 10.2.2.2"}, want: "198.51.100.7"},
		{name: "all hops trusted", remote: "10.1.1.1:4000", headers: map[string]string{"X-Forwarded-For": "10.2.2.2"}, want: "10.1.1.1:4000"},
		{name: "garbage hop", remote: "10.1.1.1:4000", headers: map[string]string{"X-Forwarded-For": "198.51.100.7, not-an-ip"}, want: "10.1.1.1:4000"},
		{name: "X-Real-IP from proxy", remote: "10.1.1.1:4000", headers: map[string]string{"X-Real-IP": "198.51.100.8"}, want: "198.51.100.8"},
		{name: "True-Client-IP from proxy", remote: "10.1.1.1:4000", headers: map[string]string{"True-Client-IP": "2001:db8::1"}, want: "2001:db8::1"},
		{name: "mapped peer address", remote: "[::ffff:192.0.2.1]:4000", headers: map[string]string{"X-Forwarded-For": "198.51.100.3"}, want: "198.51.100.3"},
		{name: "no headers", remote: "192.0.2.1:4000", want: "192.0.2.1:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := realIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodPost, "/webhooks/x", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("expected RemoteAddr %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRealIP_NoTrustedProxies(t *testing.T) {
	var got string
	h := realIP(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = sourceAddr(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/x", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("True-Client-IP", "198.51.100.2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "192.0.2.1" {
		t.Errorf("expected the peer address, got %q", got)
	}
}
