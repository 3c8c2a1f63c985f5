package domain

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/bugchan/bountyd/internal/storage"
)

func parseAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parsing stored %s %q: %w", field, s, err)
	}
	return v, nil
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored %s %q: %w", field, s, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func bountyFromRecord(rec *storage.Bounty) (*Bounty, error) {
	pool, err := parseAmount("reward pool", rec.RewardPool)
	if err != nil {
		return nil, err
	}
	initial, err := parseAmount("initial reward", rec.InitialReward)
	if err != nil {
		return nil, err
	}
	stake, err := parseAmount("stake amount", rec.StakeAmount)
	if err != nil {
		return nil, err
	}
	endTime, err := parseTime("end time", rec.EndTime)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime("created at", rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	closedAt, err := parseTime("closed at", rec.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &Bounty{
		ID:            rec.ID,
		Owner:         rec.Owner,
		Triager:       rec.Triager,
		ContentRef:    rec.ContentRef,
		RewardPool:    pool,
		InitialReward: initial,
		StakeAmount:   stake,
		Status:        Status(rec.Status),
		EndTime:       endTime,
		CreatedAt:     createdAt,
		ClosedAt:      closedAt,
	}, nil
}

func bountyToRecord(b *Bounty) *storage.Bounty {
	return &storage.Bounty{
		ID:            b.ID,
		Owner:         b.Owner,
		Triager:       b.Triager,
		ContentRef:    b.ContentRef,
		RewardPool:    b.RewardPool.Dec(),
		InitialReward: b.InitialReward.Dec(),
		StakeAmount:   b.StakeAmount.Dec(),
		Status:        string(b.Status),
		EndTime:       formatTime(b.EndTime),
		CreatedAt:     formatTime(b.CreatedAt),
		ClosedAt:      formatTime(b.ClosedAt),
	}
}

func submissionFromRecord(rec *storage.Submission) (*Submission, error) {
	stake, err := parseAmount("stake", rec.Stake)
	if err != nil {
		return nil, err
	}
	createdAt, err := parseTime("created at", rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	resolvedAt, err := parseTime("resolved at", rec.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &Submission{
		BountyID:   rec.BountyID,
		Researcher: rec.Researcher,
		ContentRef: rec.ContentRef,
		Stake:      stake,
		State:      SubmissionState(rec.State),
		Visibility: Visibility(rec.Visibility),
		Severity:   Severity(rec.Severity),
		CreatedAt:  createdAt,
		ResolvedAt: resolvedAt,
	}, nil
}

func submissionToRecord(sub *Submission) *storage.Submission {
	return &storage.Submission{
		BountyID:   sub.BountyID,
		Researcher: sub.Researcher,
		ContentRef: sub.ContentRef,
		Stake:      sub.Stake.Dec(),
		State:      string(sub.State),
		Visibility: string(sub.Visibility),
		Severity:   string(sub.Severity),
		CreatedAt:  formatTime(sub.CreatedAt),
		ResolvedAt: formatTime(sub.ResolvedAt),
	}
}
