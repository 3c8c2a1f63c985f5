package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Middleware records request counts and latency per method and route.
func Middleware(next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := routeLabel(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// routeLabel collapses dynamic path segments so label cardinality stays
// bounded: bounty IDs become {id}, researcher wallets become {wallet}.
//
//	/api/v1/bounties/9f3c.../submissions/0xabc.../accept
//	  -> /api/v1/bounties/{id}/submissions/{wallet}/accept
func routeLabel(path string) string {
	if !strings.HasPrefix(path, "/api/v1/") {
		// Health probes, /metrics, and scanner noise are low-cardinality
		return path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		switch {
		case isWallet(seg):
			segments[i] = "{wallet}"
		case isUUID(seg) || isNumeric(seg):
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isWallet(seg string) bool {
	if len(seg) != 42 || !strings.HasPrefix(seg, "0x") {
		return false
	}
	for _, c := range seg[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func isUUID(seg string) bool {
	return len(seg) == 36 && strings.Count(seg, "-") == 4
}

func isNumeric(seg string) bool {
	if seg == "" {
		return false
	}
	for _, c := range seg {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
