// Package metrics provides Prometheus instrumentation for bountyd.
package metrics

// BountyCreate records a bounty creation.
func BountyCreate(status string) {
	if !enabled {
		return
	}
	bountyCreateTotal.WithLabelValues(status).Inc()
}

// Submission records a report submission.
func Submission(status string) {
	if !enabled {
		return
	}
	submissionTotal.WithLabelValues(status).Inc()
}

// Triage records an accept, reject, severity or visibility operation.
func Triage(operation, status string) {
	if !enabled {
		return
	}
	triageTotal.WithLabelValues(operation, status).Inc()
}

// Close records a settlement. kind is "owner" or "expired".
func Close(kind, status string, winners int) {
	if !enabled {
		return
	}
	closeTotal.WithLabelValues(kind, status).Inc()
	if status == "ok" {
		settlementPaid.WithLabelValues(kind).Observe(float64(winners))
	}
}
