package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/bugchan/bountyd/internal/events"
	"github.com/bugchan/bountyd/internal/ledger"
	"github.com/bugchan/bountyd/internal/storage"
	"github.com/bugchan/bountyd/internal/validation"
)

// Store defines the storage operations needed by the bounty domain.
type Store interface {
	GetBounty(ctx context.Context, id string) (*storage.Bounty, error)
	CreateSubmission(ctx context.Context, sub *storage.Submission, events []storage.Event) error
	GetSubmission(ctx context.Context, bountyID, researcher string) (*storage.Submission, error)
	ListSubmissions(ctx context.Context, bountyID string) ([]storage.Submission, error)
	UpdateSubmission(ctx context.Context, sub *storage.Submission, events []storage.Event) error
	CloseBounty(ctx context.Context, b *storage.Bounty, subs []storage.Submission, events []storage.Event) error
	ListEvents(ctx context.Context, bountyID string, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Event], error)
}

// Service is the bounty lifecycle API: everything that happens to a
// bounty after creation.
type Service interface {
	SubmitReport(ctx context.Context, bountyID string, req SubmitRequest) (*Submission, error)
	AcceptSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error)
	RejectSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error)
	SetSeverity(ctx context.Context, bountyID, researcher, caller string, severity Severity) (*Submission, error)
	SetVisibility(ctx context.Context, bountyID, researcher, caller string, visibility Visibility, contentRef string) (*Submission, error)
	Close(ctx context.Context, bountyID, caller string) (*CloseResult, error)
	CloseIfExpired(ctx context.Context, bountyID string) (*CloseResult, error)
	GetBounty(ctx context.Context, bountyID string) (*Bounty, error)
	GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error)
	ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error)
	ListEvents(ctx context.Context, bountyID string, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Event], error)
}

type service struct {
	store Store
	locks *bountyLocks
	now   func() time.Time
}

// NewService creates a new bounty service.
func NewService(store Store) *service {
	return &service{
		store: store,
		locks: newBountyLocks(),
		now:   time.Now,
	}
}

// loadOpen fetches a bounty and fails unless it is still open. Callers
// must hold the bounty lock.
func (s *service) loadOpen(ctx context.Context, bountyID string) (*Bounty, error) {
	rec, err := s.store.GetBounty(ctx, bountyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	b, err := bountyFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusOpen {
		return nil, ErrBountyClosed
	}
	return b, nil
}

// SubmitReport registers a report and escrows the researcher's stake.
// One submission per wallet per bounty, forever: a rejected or refunded
// researcher cannot submit again.
func (s *service) SubmitReport(ctx context.Context, bountyID string, req SubmitRequest) (*Submission, error) {
	if err := validation.ValidateAddress(req.Researcher); err != nil {
		return nil, fmt.Errorf("%w: researcher: %v", ErrInvalidParameters, err)
	}
	researcher := validation.NormalizeAddress(req.Researcher)
	if err := validation.ValidateContentRef(req.ContentRef); err != nil {
		return nil, fmt.Errorf("%w: contentRef: %v", ErrInvalidParameters, err)
	}
	deposit, err := validation.ParseAmount(req.Deposit)
	if err != nil {
		return nil, fmt.Errorf("%w: deposit: %v", ErrInvalidParameters, err)
	}

	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !now.Before(b.EndTime) {
		return nil, fmt.Errorf("%w: submission window has passed", ErrBountyClosed)
	}
	if !deposit.Eq(b.StakeAmount) {
		return nil, ErrWrongStakeAmount
	}

	sub := &Submission{
		BountyID:   bountyID,
		Researcher: researcher,
		ContentRef: req.ContentRef,
		Stake:      new(uint256.Int).Set(deposit),
		State:      StatePending,
		Visibility: VisibilityPrivate,
		Severity:   SeverityNone,
		CreatedAt:  now,
	}
	evs := []storage.Event{
		s.event(bountyID, events.TypeReportSubmitted, now, func(e *storage.Event) {
			e.Researcher = researcher
			e.ContentRef = req.ContentRef
		}),
		s.event(bountyID, events.TypeStakeDeposited, now, func(e *storage.Event) {
			e.Researcher = researcher
			e.Amount = deposit.Dec()
		}),
	}
	if err := s.store.CreateSubmission(ctx, submissionToRecord(sub), evs); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("creating submission: %w", err)
	}
	return sub, nil
}

// loadPending fetches the researcher's submission and fails unless it is
// still pending. A resolved submission is invisible to triage.
func (s *service) loadPending(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	sub, err := s.loadSubmission(ctx, bountyID, researcher)
	if err != nil {
		return nil, err
	}
	if sub.State != StatePending {
		return nil, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *service) loadSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	rec, err := s.store.GetSubmission(ctx, bountyID, validation.NormalizeAddress(researcher))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return submissionFromRecord(rec)
}

// AcceptSubmission marks a pending submission as a winner. Verdicts are
// the owner's alone; the triager only grades. Payment is deferred to
// close; the stake stays escrowed until then.
func (s *service) AcceptSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if !CanResolve(b, validation.NormalizeAddress(caller)) {
		return nil, ErrNotAuthorized
	}
	sub, err := s.loadPending(ctx, bountyID, researcher)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub.State = StateAccepted
	sub.ResolvedAt = now
	evs := []storage.Event{
		s.event(bountyID, events.TypeSubmissionAccepted, now, func(e *storage.Event) {
			e.Researcher = sub.Researcher
		}),
	}
	if err := s.store.UpdateSubmission(ctx, submissionToRecord(sub), evs); err != nil {
		return nil, fmt.Errorf("updating submission: %w", err)
	}
	return sub, nil
}

// RejectSubmission resolves a pending submission against the researcher
// and slashes the stake to the owner immediately. Owner-only, like
// accept.
func (s *service) RejectSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if !CanResolve(b, validation.NormalizeAddress(caller)) {
		return nil, ErrNotAuthorized
	}
	sub, err := s.loadPending(ctx, bountyID, researcher)
	if err != nil {
		return nil, err
	}

	now := s.now()
	slashed := new(uint256.Int).Set(sub.Stake)
	sub.State = StateRejected
	sub.Stake = new(uint256.Int)
	sub.ResolvedAt = now
	evs := []storage.Event{
		s.event(bountyID, events.TypeSubmissionRejected, now, func(e *storage.Event) {
			e.Researcher = sub.Researcher
		}),
		s.event(bountyID, events.TypeStakeSlashed, now, func(e *storage.Event) {
			e.Researcher = sub.Researcher
			e.Recipient = b.Owner
			e.Amount = slashed.Dec()
		}),
	}
	if err := s.store.UpdateSubmission(ctx, submissionToRecord(sub), evs); err != nil {
		return nil, fmt.Errorf("updating submission: %w", err)
	}
	return sub, nil
}

// SetSeverity grades a submission. Severity is triage metadata and may
// be set on resolved submissions too, as long as the bounty is open.
func (s *service) SetSeverity(ctx context.Context, bountyID, researcher, caller string, severity Severity) (*Submission, error) {
	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if !CanTriage(b, validation.NormalizeAddress(caller)) {
		return nil, ErrNotAuthorized
	}
	sub, err := s.loadSubmission(ctx, bountyID, researcher)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub.Severity = severity
	evs := []storage.Event{
		s.event(bountyID, events.TypeSeveritySet, now, func(e *storage.Event) {
			e.Researcher = sub.Researcher
			e.Meta = map[string]any{"severity": string(severity)}
		}),
	}
	if err := s.store.UpdateSubmission(ctx, submissionToRecord(sub), evs); err != nil {
		return nil, fmt.Errorf("updating submission: %w", err)
	}
	return sub, nil
}

// SetVisibility discloses a submission's report, replacing its content
// reference with the plaintext pointer. Owner and triager may reveal
// any report; the author may reveal their own once it is no longer
// pending. Private→public is one-way; asking for the current
// visibility is a no-op.
func (s *service) SetVisibility(ctx context.Context, bountyID, researcher, caller string, visibility Visibility, contentRef string) (*Submission, error) {
	if visibility != VisibilityPrivate && visibility != VisibilityPublic {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidParameters, visibility)
	}

	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	researcher = validation.NormalizeAddress(researcher)
	sub, err := s.loadSubmission(ctx, bountyID, researcher)
	if err != nil {
		return nil, err
	}
	if !CanDisclose(b, sub, validation.NormalizeAddress(caller)) {
		return nil, ErrNotAuthorized
	}
	if sub.Visibility == visibility {
		return sub, nil
	}
	if sub.Visibility == VisibilityPublic {
		return nil, fmt.Errorf("%w: a public report cannot be made private", ErrInvalidParameters)
	}
	if err := validation.ValidateContentRef(contentRef); err != nil {
		return nil, fmt.Errorf("%w: disclosed content ref: %v", ErrInvalidParameters, err)
	}

	now := s.now()
	sub.Visibility = visibility
	sub.ContentRef = contentRef
	evs := []storage.Event{
		s.event(bountyID, events.TypeVisibilityChanged, now, func(e *storage.Event) {
			e.Researcher = sub.Researcher
			e.ContentRef = contentRef
			e.Meta = map[string]any{"visibility": string(visibility)}
		}),
	}
	if err := s.store.UpdateSubmission(ctx, submissionToRecord(sub), evs); err != nil {
		return nil, fmt.Errorf("updating submission: %w", err)
	}
	return sub, nil
}

// Close settles the bounty at the owner's request, at any time while it
// is open.
func (s *service) Close(ctx context.Context, bountyID, caller string) (*CloseResult, error) {
	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if !CanClose(b, validation.NormalizeAddress(caller)) {
		return nil, ErrNotAuthorized
	}
	return s.settle(ctx, b)
}

// CloseIfExpired settles the bounty on anyone's request once the end
// time has passed. The caller's identity is irrelevant.
func (s *service) CloseIfExpired(ctx context.Context, bountyID string) (*CloseResult, error) {
	unlock := s.locks.lock(bountyID)
	defer unlock()

	b, err := s.loadOpen(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if s.now().Before(b.EndTime) {
		return nil, ErrNotExpired
	}
	return s.settle(ctx, b)
}

// settle runs the one settlement both close paths converge on: refund
// every pending stake, split the pool equally among accepted
// submissions (each also getting their stake back), or return the pool
// to the owner when nobody was accepted. Integer dust stays escrowed.
func (s *service) settle(ctx context.Context, b *Bounty) (*CloseResult, error) {
	recs, err := s.store.ListSubmissions(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	acct := ledger.NewAccount(b.RewardPool)
	var winners, pending []ledger.Stakeholder
	var winnerSubs, pendingSubs []*Submission
	for i := range recs {
		sub, err := submissionFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		switch sub.State {
		case StateAccepted:
			acct.DepositStake(sub.Stake)
			winners = append(winners, ledger.Stakeholder{Researcher: sub.Researcher, Stake: sub.Stake})
			winnerSubs = append(winnerSubs, sub)
		case StatePending:
			acct.DepositStake(sub.Stake)
			pending = append(pending, ledger.Stakeholder{Researcher: sub.Researcher, Stake: sub.Stake})
			pendingSubs = append(pendingSubs, sub)
		}
	}

	settlement, err := ledger.Settle(acct, b.Owner, winners, pending)
	if err != nil {
		return nil, fmt.Errorf("settling: %w", err)
	}

	now := s.now()
	var evs []storage.Event
	var touched []storage.Submission

	for i, r := range settlement.Refunds {
		sub := pendingSubs[i]
		sub.State = StateRefunded
		sub.Stake = new(uint256.Int)
		sub.ResolvedAt = now
		touched = append(touched, *submissionToRecord(sub))
		evs = append(evs, s.event(b.ID, events.TypeStakeRefunded, now, func(e *storage.Event) {
			e.Researcher = r.Recipient
			e.Recipient = r.Recipient
			e.Amount = r.Amount.Dec()
		}))
	}
	for i, p := range settlement.Payouts {
		sub := winnerSubs[i]
		sub.Stake = new(uint256.Int)
		touched = append(touched, *submissionToRecord(sub))
		evs = append(evs, s.event(b.ID, events.TypeFundsReleased, now, func(e *storage.Event) {
			e.Researcher = p.Recipient
			e.Recipient = p.Recipient
			e.Amount = p.Amount.Dec()
			e.Meta = map[string]any{
				"share": settlement.Share.Dec(),
				"stake": p.Stake.Dec(),
			}
		}))
	}
	if settlement.OwnerReturn != nil {
		evs = append(evs, s.event(b.ID, events.TypeFundsReleased, now, func(e *storage.Event) {
			e.Recipient = b.Owner
			e.Amount = settlement.OwnerReturn.Dec()
			e.Meta = map[string]any{"reason": "no accepted submissions"}
		}))
	}
	evs = append(evs, s.event(b.ID, events.TypeBountyClosed, now, func(e *storage.Event) {
		e.Meta = map[string]any{
			"winners":    len(winners),
			"total_paid": settlement.TotalPaid.Dec(),
			"dust":       settlement.Dust.Dec(),
		}
	}))

	b.Status = StatusClosed
	b.ClosedAt = now
	b.RewardPool = new(uint256.Int).Set(acct.Pool)

	if err := s.store.CloseBounty(ctx, bountyToRecord(b), touched, evs); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyClosed
		}
		return nil, fmt.Errorf("closing bounty: %w", err)
	}

	result := &CloseResult{
		Bounty:      b,
		Winners:     len(winners),
		TotalPaid:   settlement.TotalPaid,
		Dust:        settlement.Dust,
		OwnerReturn: settlement.OwnerReturn,
	}
	for _, p := range settlement.Payouts {
		result.Payouts = append(result.Payouts, Payment{Recipient: p.Recipient, Amount: p.Amount})
	}
	for _, r := range settlement.Refunds {
		result.Refunds = append(result.Refunds, Payment{Recipient: r.Recipient, Amount: r.Amount})
	}
	return result, nil
}

// GetBounty returns a bounty in any state.
func (s *service) GetBounty(ctx context.Context, bountyID string) (*Bounty, error) {
	rec, err := s.store.GetBounty(ctx, bountyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	return bountyFromRecord(rec)
}

// GetSubmission returns one researcher's submission on a bounty.
func (s *service) GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	if _, err := s.store.GetBounty(ctx, bountyID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	return s.loadSubmission(ctx, bountyID, researcher)
}

// ListSubmissions returns every submission on a bounty, submitters list
// included via the Researcher field.
func (s *service) ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error) {
	if _, err := s.store.GetBounty(ctx, bountyID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	recs, err := s.store.ListSubmissions(ctx, bountyID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	subs := make([]Submission, 0, len(recs))
	for i := range recs {
		sub, err := submissionFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

// ListEvents returns a page of the bounty's audit trail, oldest first.
func (s *service) ListEvents(ctx context.Context, bountyID string, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Event], error) {
	if _, err := s.store.GetBounty(ctx, bountyID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	res, err := s.store.ListEvents(ctx, bountyID, pagination)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return res, nil
}

func (s *service) event(bountyID, typ string, now time.Time, fill func(*storage.Event)) storage.Event {
	e := storage.Event{
		BountyID:  bountyID,
		Type:      typ,
		CreatedAt: formatTime(now),
	}
	fill(&e)
	return e
}
