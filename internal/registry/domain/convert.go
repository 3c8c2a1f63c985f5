package domain

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/storage"
)

func recordFromBounty(b *bounty.Bounty) *storage.Bounty {
	return &storage.Bounty{
		ID:            b.ID,
		Owner:         b.Owner,
		Triager:       b.Triager,
		ContentRef:    b.ContentRef,
		RewardPool:    b.RewardPool.Dec(),
		InitialReward: b.InitialReward.Dec(),
		StakeAmount:   b.StakeAmount.Dec(),
		Status:        string(b.Status),
		EndTime:       b.EndTime.UTC().Format(time.RFC3339),
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func bountyFromRecord(rec *storage.Bounty) (*bounty.Bounty, error) {
	pool, err := uint256.FromDecimal(rec.RewardPool)
	if err != nil {
		return nil, fmt.Errorf("parsing stored reward pool %q: %w", rec.RewardPool, err)
	}
	initial, err := uint256.FromDecimal(rec.InitialReward)
	if err != nil {
		return nil, fmt.Errorf("parsing stored initial reward %q: %w", rec.InitialReward, err)
	}
	stake, err := uint256.FromDecimal(rec.StakeAmount)
	if err != nil {
		return nil, fmt.Errorf("parsing stored stake amount %q: %w", rec.StakeAmount, err)
	}
	endTime, err := parseTime(rec.EndTime)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime(rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	closedAt, err := parseTime(rec.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &bounty.Bounty{
		ID:            rec.ID,
		Owner:         rec.Owner,
		Triager:       rec.Triager,
		ContentRef:    rec.ContentRef,
		RewardPool:    pool,
		InitialReward: initial,
		StakeAmount:   stake,
		Status:        bounty.Status(rec.Status),
		EndTime:       endTime,
		CreatedAt:     createdAt,
		ClosedAt:      closedAt,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", s, err)
	}
	return t, nil
}
