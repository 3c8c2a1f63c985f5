// Package domain contains the bounty lifecycle state machine: staking,
// triage, and settlement for one bug-bounty program.
package domain

import (
	"errors"
	"time"

	"github.com/holiman/uint256"
)

// Status is the lifecycle state of a bounty. Closed is terminal.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// SubmissionState is the lifecycle state of a submission. Absence of a
// submission is represented by a nil lookup, never by a zero record.
type SubmissionState string

const (
	StatePending  SubmissionState = "pending"
	StateAccepted SubmissionState = "accepted"
	StateRejected SubmissionState = "rejected"
	StateRefunded SubmissionState = "refunded"
)

// Visibility is the disclosure state of a submission. The transition is
// one-way: once Public, a report never returns to Private.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Severity is triage metadata, independent of the submission lifecycle.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), nil
	}
	return "", errors.New("unknown severity")
}

// Bounty is one bug-bounty program with its escrowed economics.
type Bounty struct {
	ID            string
	Owner         string
	Triager       string // optional; empty when unset
	ContentRef    string
	RewardPool    *uint256.Int // remaining pool
	InitialReward *uint256.Int // immutable, funded at creation
	StakeAmount   *uint256.Int // immutable, exact per-submission deposit
	Status        Status
	EndTime       time.Time
	CreatedAt     time.Time
	ClosedAt      time.Time // zero while open
}

// Submission is one researcher's report on a bounty.
type Submission struct {
	BountyID   string
	Researcher string
	ContentRef string
	Stake      *uint256.Int // zeroed once resolved
	State      SubmissionState
	Visibility Visibility
	Severity   Severity
	CreatedAt  time.Time
	ResolvedAt time.Time // zero while pending
}

// SubmitRequest is the request to register a report on a bounty.
type SubmitRequest struct {
	Researcher string `json:"researcher"`
	ContentRef string `json:"contentRef"`
	Deposit    string `json:"deposit"` // decimal wei, must equal the bounty's stake amount
}

// Payment is one outbound transfer made by a settlement.
type Payment struct {
	Recipient string
	Amount    *uint256.Int
}

// CloseResult summarizes a settlement.
type CloseResult struct {
	Bounty      *Bounty
	Winners     int
	TotalPaid   *uint256.Int
	Dust        *uint256.Int
	Payouts     []Payment
	Refunds     []Payment
	OwnerReturn *uint256.Int // nil unless nobody was accepted
}
