package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resolveThrough(t *testing.T, cfg Config, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var got string
	handler := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bounties", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestPeerAddressWhenProxyNotTrusted(t *testing.T) {
	ip := resolveThrough(t, Config{TrustProxy: false}, "203.0.113.7:4312", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	assert.Equal(t, "203.0.113.7", ip)
}

func TestForwardedForFromTrustedProxy(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}

	ip := resolveThrough(t, cfg, "10.0.0.5:80", map[string]string{
		"X-Forwarded-For": "198.51.100.1, 10.0.0.9",
	})
	assert.Equal(t, "198.51.100.1", ip)
}

func TestForwardedForFromUntrustedPeerIgnored(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}

	// Peer is not in the trust list, so its header is spoofable
	ip := resolveThrough(t, cfg, "203.0.113.7:4312", map[string]string{
		"X-Forwarded-For": "198.51.100.1",
	})
	assert.Equal(t, "203.0.113.7", ip)
}

func TestRealIPFallback(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.5"}}

	ip := resolveThrough(t, cfg, "10.0.0.5:80", map[string]string{
		"X-Real-IP": "198.51.100.2",
	})
	assert.Equal(t, "198.51.100.2", ip)
}

func TestAllHopsTrusted(t *testing.T) {
	cfg := Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}}

	ip := resolveThrough(t, cfg, "10.0.0.5:80", map[string]string{
		"X-Forwarded-For": "10.0.0.1, 10.0.0.2",
	})
	assert.Equal(t, "10.0.0.1", ip)
}

func TestBareIPTrustEntry(t *testing.T) {
	trusted := parseTrustList([]string{"10.0.0.5", "garbage", "192.168.0.0/16"})
	assert.True(t, trusted.contains("10.0.0.5"))
	assert.True(t, trusted.contains("192.168.3.4"))
	assert.False(t, trusted.contains("10.0.0.6"))
	assert.False(t, trusted.contains("not-an-ip"))
}

func TestGetClientIPWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4312"
	assert.Equal(t, "203.0.113.7", GetClientIP(req))
}
