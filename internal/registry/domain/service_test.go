package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/events"
	"github.com/bugchan/bountyd/internal/storage"
)

const (
	ownerAddr   = "0xAAaaAAaaAAaaAAaaAAaaAAaaAAaaAAaaAAaaAAaa"
	triagerAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	programCID  = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

// mockStore implements the registry Store interface for testing
type mockStore struct {
	bounties map[string]*storage.Bounty
	events   []storage.Event
}

func newMockStore() *mockStore {
	return &mockStore{bounties: make(map[string]*storage.Bounty)}
}

func (m *mockStore) CreateBounty(ctx context.Context, b *storage.Bounty, evs []storage.Event) error {
	cp := *b
	m.bounties[b.ID] = &cp
	m.events = append(m.events, evs...)
	return nil
}

func (m *mockStore) GetBounty(ctx context.Context, id string) (*storage.Bounty, error) {
	if b, ok := m.bounties[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ListBounties(ctx context.Context, filter storage.BountyFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Bounty], error) {
	var items []storage.Bounty
	for _, b := range m.bounties {
		if filter.Owner != "" && b.Owner != filter.Owner {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		items = append(items, *b)
	}
	return &storage.PaginatedResult[storage.Bounty]{Data: items}, nil
}

func validRequest() CreateRequest {
	return CreateRequest{
		Owner:       ownerAddr,
		Triager:     triagerAddr,
		ContentRef:  programCID,
		Reward:      "1000000000000000000",
		StakeAmount: "20000000000000000",
		Duration:    7 * 24 * 3600,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("opens bounty with escrowed reward", func(t *testing.T) {
		store := newMockStore()
		svc := NewService(store)
		svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

		b, err := svc.Create(ctx, validRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, bounty.StatusOpen, b.Status)
		assert.Equal(t, "1000000000000000000", b.RewardPool.Dec())
		assert.Equal(t, "1000000000000000000", b.InitialReward.Dec())
		assert.Equal(t, "20000000000000000", b.StakeAmount.Dec())
		assert.Equal(t, time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), b.EndTime)

		// addresses are normalized to lowercase
		assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", b.Owner)

		require.Len(t, store.events, 1)
		assert.Equal(t, events.TypeBountyCreated, store.events[0].Type)
		assert.Equal(t, "20000000000000000", store.events[0].Meta["stakeAmount"])
	})

	t.Run("triager is optional", func(t *testing.T) {
		svc := NewService(newMockStore())
		req := validRequest()
		req.Triager = ""

		b, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, b.Triager)
	})

	t.Run("zero reward is allowed", func(t *testing.T) {
		svc := NewService(newMockStore())
		req := validRequest()
		req.Reward = "0"

		b, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.True(t, b.RewardPool.IsZero())
	})

	t.Run("invalid parameters", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*CreateRequest)
		}{
			{"bad owner", func(r *CreateRequest) { r.Owner = "0x123" }},
			{"bad triager", func(r *CreateRequest) { r.Triager = "not-an-address" }},
			{"bad content ref", func(r *CreateRequest) { r.ContentRef = "not a cid" }},
			{"zero stake", func(r *CreateRequest) { r.StakeAmount = "0" }},
			{"negative amount", func(r *CreateRequest) { r.Reward = "-5" }},
			{"zero duration", func(r *CreateRequest) { r.Duration = 0 }},
			{"negative duration", func(r *CreateRequest) { r.Duration = -1 }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := newMockStore()
				svc := NewService(store)
				req := validRequest()
				tt.mutate(&req)

				_, err := svc.Create(ctx, req)
				assert.ErrorIs(t, err, bounty.ErrInvalidParameters)
				assert.Empty(t, store.bounties)
			})
		}
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store)

	created, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	b, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, b.ID)
	assert.Equal(t, created.StakeAmount.Dec(), b.StakeAmount.Dec())

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, bounty.ErrBountyNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store)

	_, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	req := validRequest()
	req.Owner = triagerAddr
	_, err = svc.Create(ctx, req)
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{}, storage.PaginationParams{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, all.Bounties, 2)

	// owner filter normalizes checksummed input
	mine, err := svc.List(ctx, ListFilter{Owner: ownerAddr}, storage.PaginationParams{Limit: 20})
	require.NoError(t, err)
	require.Len(t, mine.Bounties, 1)
	assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", mine.Bounties[0].Owner)
}
