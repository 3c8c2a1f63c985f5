// Package transport provides HTTP request/response types for the bounty domain.
package transport

import (
	"time"

	"github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/storage"
)

// SubmitRequest is the HTTP request body for submitting a report.
type SubmitRequest struct {
	Researcher string `json:"researcher"`
	ContentRef string `json:"contentRef"`
	Deposit    string `json:"deposit"`
}

// CallerRequest carries the wallet performing a triage or close action.
type CallerRequest struct {
	Caller string `json:"caller"`
}

// SeverityRequest grades a submission.
type SeverityRequest struct {
	Caller   string `json:"caller"`
	Severity string `json:"severity"`
}

// VisibilityRequest discloses a submission. ContentRef is the plaintext
// pointer that replaces the private one.
type VisibilityRequest struct {
	Caller     string `json:"caller"`
	Visibility string `json:"visibility"`
	ContentRef string `json:"contentRef"`
}

// SubmissionResponse is one submission on the wire. Amounts are decimal
// wei strings.
type SubmissionResponse struct {
	BountyID   string `json:"bountyId"`
	Researcher string `json:"researcher"`
	ContentRef string `json:"contentRef,omitempty"`
	Stake      string `json:"stake"`
	State      string `json:"state"`
	Visibility string `json:"visibility"`
	Severity   string `json:"severity"`
	CreatedAt  string `json:"createdAt"`
	ResolvedAt string `json:"resolvedAt,omitempty"`
}

// SubmissionFromDomain converts a domain submission for the wire.
// A private report's content reference is only revealed to its author,
// the owner and the triager; everyone else sees the envelope.
func SubmissionFromDomain(sub *domain.Submission, revealRef bool) SubmissionResponse {
	resp := SubmissionResponse{
		BountyID:   sub.BountyID,
		Researcher: sub.Researcher,
		Stake:      sub.Stake.Dec(),
		State:      string(sub.State),
		Visibility: string(sub.Visibility),
		Severity:   string(sub.Severity),
		CreatedAt:  formatTime(sub.CreatedAt),
		ResolvedAt: formatTime(sub.ResolvedAt),
	}
	if revealRef || sub.Visibility == domain.VisibilityPublic {
		resp.ContentRef = sub.ContentRef
	}
	return resp
}

// PaymentResponse is one settlement transfer on the wire.
type PaymentResponse struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// CloseResponse summarizes a settlement on the wire.
type CloseResponse struct {
	BountyID    string            `json:"bountyId"`
	Status      string            `json:"status"`
	ClosedAt    string            `json:"closedAt"`
	Winners     int               `json:"winners"`
	TotalPaid   string            `json:"totalPaid"`
	Dust        string            `json:"dust"`
	Payouts     []PaymentResponse `json:"payouts"`
	Refunds     []PaymentResponse `json:"refunds"`
	OwnerReturn string            `json:"ownerReturn,omitempty"`
}

// CloseFromDomain converts a settlement result for the wire.
func CloseFromDomain(res *domain.CloseResult) CloseResponse {
	resp := CloseResponse{
		BountyID:  res.Bounty.ID,
		Status:    string(res.Bounty.Status),
		ClosedAt:  formatTime(res.Bounty.ClosedAt),
		Winners:   res.Winners,
		TotalPaid: res.TotalPaid.Dec(),
		Dust:      res.Dust.Dec(),
		Payouts:   []PaymentResponse{},
		Refunds:   []PaymentResponse{},
	}
	for _, p := range res.Payouts {
		resp.Payouts = append(resp.Payouts, PaymentResponse{Recipient: p.Recipient, Amount: p.Amount.Dec()})
	}
	for _, r := range res.Refunds {
		resp.Refunds = append(resp.Refunds, PaymentResponse{Recipient: r.Recipient, Amount: r.Amount.Dec()})
	}
	if res.OwnerReturn != nil {
		resp.OwnerReturn = res.OwnerReturn.Dec()
	}
	return resp
}

// EventResponse is one audit trail entry on the wire.
type EventResponse struct {
	Seq        int64          `json:"seq"`
	BountyID   string         `json:"bountyId"`
	Type       string         `json:"type"`
	Researcher string         `json:"researcher,omitempty"`
	Recipient  string         `json:"recipient,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	ContentRef string         `json:"contentRef,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

// EventFromRecord converts a stored event for the wire.
func EventFromRecord(e *storage.Event) EventResponse {
	return EventResponse{
		Seq:        e.Seq,
		BountyID:   e.BountyID,
		Type:       e.Type,
		Researcher: e.Researcher,
		Recipient:  e.Recipient,
		Amount:     e.Amount,
		ContentRef: e.ContentRef,
		Meta:       e.Meta,
		CreatedAt:  e.CreatedAt,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
