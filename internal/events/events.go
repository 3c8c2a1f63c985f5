// Package events names the audit trail entries bountyd emits. Every
// state change writes exactly the events listed here, in the same
// transaction as the change, so indexers can reconstruct the full
// economic history of a bounty from the trail alone.
package events

// Event types, one per observable state change.
const (
	TypeBountyCreated      = "bounty_created"
	TypeReportSubmitted    = "report_submitted"
	TypeStakeDeposited     = "stake_deposited"
	TypeStakeSlashed       = "stake_slashed"
	TypeStakeRefunded      = "stake_refunded"
	TypeSubmissionAccepted = "submission_accepted"
	TypeSubmissionRejected = "submission_rejected"
	TypeSeveritySet        = "severity_set"
	TypeVisibilityChanged  = "submission_visibility_changed"
	TypeFundsReleased      = "funds_released"
	TypeBountyClosed       = "bounty_closed"
)
