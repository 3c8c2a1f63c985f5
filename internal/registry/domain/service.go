// Package domain contains the business logic for creating and browsing
// bounties. Lifecycle mutations after creation live in the bounty domain.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/events"
	"github.com/bugchan/bountyd/internal/storage"
	"github.com/bugchan/bountyd/internal/validation"
)

// Store defines the storage operations needed by the registry domain.
type Store interface {
	CreateBounty(ctx context.Context, b *storage.Bounty, events []storage.Event) error
	GetBounty(ctx context.Context, id string) (*storage.Bounty, error)
	ListBounties(ctx context.Context, filter storage.BountyFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Bounty], error)
}

// CreateRequest carries the immutable terms of a new bounty.
type CreateRequest struct {
	Owner       string
	Triager     string
	ContentRef  string
	Reward      string // decimal wei, attached at creation
	StakeAmount string // decimal wei, exact per-submission deposit
	Duration    int64  // seconds until the bounty may be force-closed
}

// ListFilter narrows a bounty listing.
type ListFilter struct {
	Owner  string
	Status string
}

// ListResult is one page of bounties.
type ListResult struct {
	Bounties   []bounty.Bounty
	HasMore    bool
	NextCursor string
}

// Service is the bounty registry API.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*bounty.Bounty, error)
	Get(ctx context.Context, id string) (*bounty.Bounty, error)
	List(ctx context.Context, filter ListFilter, pagination storage.PaginationParams) (*ListResult, error)
}

type service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new registry service.
func NewService(store Store) *service {
	return &service{
		store: store,
		now:   time.Now,
	}
}

// Create opens a new bounty and escrows the attached reward. The terms
// are fixed forever: stake amount, end time and triager cannot change
// after this call.
func (s *service) Create(ctx context.Context, req CreateRequest) (*bounty.Bounty, error) {
	if err := validation.ValidateAddress(req.Owner); err != nil {
		return nil, fmt.Errorf("%w: owner: %v", bounty.ErrInvalidParameters, err)
	}
	owner := validation.NormalizeAddress(req.Owner)

	triager := ""
	if req.Triager != "" {
		if err := validation.ValidateAddress(req.Triager); err != nil {
			return nil, fmt.Errorf("%w: triager: %v", bounty.ErrInvalidParameters, err)
		}
		triager = validation.NormalizeAddress(req.Triager)
	}
	if err := validation.ValidateContentRef(req.ContentRef); err != nil {
		return nil, fmt.Errorf("%w: contentRef: %v", bounty.ErrInvalidParameters, err)
	}
	// Zero reward is allowed: an unfunded bounty can still collect and
	// triage reports.
	reward, err := validation.ParseAmount(req.Reward)
	if err != nil {
		return nil, fmt.Errorf("%w: reward: %v", bounty.ErrInvalidParameters, err)
	}
	stake, err := validation.ParsePositiveAmount(req.StakeAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: stakeAmount: %v", bounty.ErrInvalidParameters, err)
	}
	if err := validation.ValidateDuration(req.Duration); err != nil {
		return nil, fmt.Errorf("%w: duration: %v", bounty.ErrInvalidParameters, err)
	}

	now := s.now()
	b := &bounty.Bounty{
		ID:            uuid.NewString(),
		Owner:         owner,
		Triager:       triager,
		ContentRef:    req.ContentRef,
		RewardPool:    new(uint256.Int).Set(reward),
		InitialReward: new(uint256.Int).Set(reward),
		StakeAmount:   stake,
		Status:        bounty.StatusOpen,
		EndTime:       now.Add(time.Duration(req.Duration) * time.Second),
		CreatedAt:     now,
	}
	evs := []storage.Event{{
		BountyID:   b.ID,
		Type:       events.TypeBountyCreated,
		Recipient:  owner,
		Amount:     reward.Dec(),
		ContentRef: req.ContentRef,
		Meta: map[string]any{
			"stakeAmount": stake.Dec(),
			"endTime":     b.EndTime.UTC().Format(time.RFC3339),
			"triager":     triager,
		},
		CreatedAt: now.UTC().Format(time.RFC3339),
	}}
	if err := s.store.CreateBounty(ctx, recordFromBounty(b), evs); err != nil {
		return nil, fmt.Errorf("creating bounty: %w", err)
	}
	return b, nil
}

// Get returns a bounty in any state.
func (s *service) Get(ctx context.Context, id string) (*bounty.Bounty, error) {
	rec, err := s.store.GetBounty(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, bounty.ErrBountyNotFound
		}
		return nil, fmt.Errorf("getting bounty: %w", err)
	}
	return bountyFromRecord(rec)
}

// List returns a page of bounties, optionally filtered by owner and
// status.
func (s *service) List(ctx context.Context, filter ListFilter, pagination storage.PaginationParams) (*ListResult, error) {
	if filter.Owner != "" {
		filter.Owner = validation.NormalizeAddress(filter.Owner)
	}
	res, err := s.store.ListBounties(ctx, storage.BountyFilter{
		Owner:  filter.Owner,
		Status: filter.Status,
	}, pagination)
	if err != nil {
		return nil, fmt.Errorf("listing bounties: %w", err)
	}
	out := &ListResult{
		HasMore:    res.HasMore,
		NextCursor: res.NextCursor,
	}
	for i := range res.Data {
		b, err := bountyFromRecord(&res.Data[i])
		if err != nil {
			return nil, err
		}
		out.Bounties = append(out.Bounties, *b)
	}
	return out, nil
}
