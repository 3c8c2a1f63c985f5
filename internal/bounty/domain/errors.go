package domain

import "errors"

var (
	// ErrBountyNotFound is returned when the bounty does not exist.
	ErrBountyNotFound = errors.New("bounty not found")

	// ErrSubmissionNotFound is returned when no submission exists for the
	// researcher, or when it exists but is not in the state the operation
	// requires.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrBountyClosed is returned for mutations against a closed bounty.
	ErrBountyClosed = errors.New("bounty is closed")

	// ErrAlreadySubmitted is returned when the researcher has ever
	// submitted to this bounty, regardless of how it resolved.
	ErrAlreadySubmitted = errors.New("researcher has already submitted to this bounty")

	// ErrWrongStakeAmount is returned when the deposit does not exactly
	// match the bounty's stake amount.
	ErrWrongStakeAmount = errors.New("deposit does not match required stake amount")

	// ErrNotAuthorized is returned when the caller lacks the capability
	// the operation requires.
	ErrNotAuthorized = errors.New("caller is not authorized for this operation")

	// ErrNotExpired is returned when a public close is attempted before
	// the bounty's end time.
	ErrNotExpired = errors.New("bounty end time has not passed")

	// ErrInvalidParameters is returned for malformed inputs.
	ErrInvalidParameters = errors.New("invalid parameters")
)
