// Package realip resolves the originating client IP when the server
// sits behind a trusted reverse proxy.
package realip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey struct{}

var clientIPKey contextKey

// Config controls proxy header handling.
type Config struct {
	// TrustProxy enables X-Forwarded-For / X-Real-IP parsing
	TrustProxy bool
	// TrustedProxies lists proxy addresses in CIDR notation. A bare IP
	// is accepted and treated as a /32 (or /128).
	TrustedProxies []string
}

// trustList is a parsed set of trusted proxy networks.
type trustList []*net.IPNet

func parseTrustList(cidrs []string) trustList {
	var nets trustList
	for _, entry := range cidrs {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 128
		if ip.To4() != nil {
			bits = 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

func (t trustList) contains(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, network := range t {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware stores the resolved client IP on the request context.
// Forwarding headers are only honored when the direct peer is a
// trusted proxy; otherwise the TCP peer address wins.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	var trusted trustList
	if cfg.TrustProxy {
		trusted = parseTrustList(cfg.TrustedProxies)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolve(r, cfg.TrustProxy, trusted)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(r *http.Request, trustProxy bool, trusted trustList) string {
	peer := stripPort(r.RemoteAddr)
	if !trustProxy || !trusted.contains(peer) {
		return peer
	}

	// Walk X-Forwarded-For right to left; the first hop that is not one
	// of our proxies is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !trusted.contains(hop) {
				return hop
			}
		}
		// Every hop was one of ours; the leftmost is the best guess.
		return strings.TrimSpace(hops[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// GetClientIP returns the client IP resolved by Middleware, falling
// back to the request's peer address.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return stripPort(r.RemoteAddr)
}
