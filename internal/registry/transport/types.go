// Package transport provides HTTP request/response types for the registry domain.
package transport

import (
	"time"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/registry/domain"
)

// CreateRequest is the HTTP request body for creating a bounty.
type CreateRequest struct {
	Owner       string `json:"owner"`
	Triager     string `json:"triager,omitempty"`
	ContentRef  string `json:"contentRef"`
	Reward      string `json:"reward"`
	StakeAmount string `json:"stakeAmount"`
	Duration    int64  `json:"duration"`
}

// ToDomain converts CreateRequest to domain.CreateRequest.
func (r CreateRequest) ToDomain() domain.CreateRequest {
	return domain.CreateRequest{
		Owner:       r.Owner,
		Triager:     r.Triager,
		ContentRef:  r.ContentRef,
		Reward:      r.Reward,
		StakeAmount: r.StakeAmount,
		Duration:    r.Duration,
	}
}

// BountyResponse is one bounty on the wire. Amounts are decimal wei
// strings.
type BountyResponse struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Triager       string `json:"triager,omitempty"`
	ContentRef    string `json:"contentRef"`
	RewardPool    string `json:"rewardPool"`
	InitialReward string `json:"initialReward"`
	StakeAmount   string `json:"stakeAmount"`
	Status        string `json:"status"`
	EndTime       string `json:"endTime"`
	CreatedAt     string `json:"createdAt"`
	ClosedAt      string `json:"closedAt,omitempty"`
}

// FromDomain converts a domain bounty for the wire.
func FromDomain(b *bounty.Bounty) BountyResponse {
	return BountyResponse{
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

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
