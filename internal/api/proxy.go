package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var (
	xForwardedFor = http.CanonicalHeaderKey("X-Forwarded-For")
	xRealIP       = http.CanonicalHeaderKey("X-Real-IP")
	trueClientIP  = http.CanonicalHeaderKey("True-Client-IP")
)

// realIP sets RemoteAddr to the address a trusted proxy reports for the
// caller. Forwarding headers from any other peer are ignored, so the source
// rate tier always keys on an address the client cannot choose.
func realIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if peer, ok := peerAddr(r.RemoteAddr); ok && isTrusted(trusted, peer) {
				if ip := forwardedAddr(r, trusted); ip != "" {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// forwardedAddr walks X-Forwarded-For from the nearest hop outwards and
// returns the first address that is not itself a trusted proxy. Without that
// header it falls back to X-Real-IP, then True-Client-IP.
func forwardedAddr(r *http.Request, trusted []netip.Prefix) string {
	var hops []string
	for _, v := range r.Header.Values(xForwardedFor) {
		hops = append(hops, strings.Split(v, ",")...)
	}
	if len(hops) > 0 {
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return ""
			}
			addr = addr.Unmap()
			if !isTrusted(trusted, addr) {
				return addr.String()
			}
		}
		return ""
	}

	for _, h := range []string{xRealIP, trueClientIP} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(h))); err == nil {
			return addr.Unmap().String()
		}
	}
	return ""
}

func peerAddr(remote string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
