package domain

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugchan/bountyd/internal/storage"
)

// Submissions from distinct researchers must coexist on one bounty all
// the way down to the database, and the store assigns each row its own
// ID when the domain hands over a fresh submission.
func TestSubmitReportAgainstSQLite(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bountyd.db")
	store, err := storage.NewSQLiteStore(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	now := time.Now().UTC()
	require.NoError(t, store.CreateBounty(ctx, &storage.Bounty{
		ID:            "b1",
		Owner:         ownerAddr,
		ContentRef:    reportCID,
		RewardPool:    "1000000000000000000",
		InitialReward: "1000000000000000000",
		StakeAmount:   "20000000000000000",
		Status:        "open",
		EndTime:       now.Add(time.Hour).Format(time.RFC3339),
		CreatedAt:     now.Format(time.RFC3339),
	}, nil))

	svc := NewService(store)

	for _, researcher := range []string{researcherAddr, otherAddr} {
		sub, err := svc.SubmitReport(ctx, "b1", SubmitRequest{
			Researcher: researcher,
			ContentRef: reportCID,
			Deposit:    "20000000000000000",
		})
		require.NoError(t, err, "researcher %s", researcher)
		assert.Equal(t, StatePending, sub.State)
	}

	// A wallet that already submitted is still refused.
	_, err = svc.SubmitReport(ctx, "b1", SubmitRequest{
		Researcher: researcherAddr,
		ContentRef: reportCID,
		Deposit:    "20000000000000000",
	})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	rows, err := store.ListSubmissions(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NotEmpty(t, rows[0].ID)
	assert.NotEmpty(t, rows[1].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)

	// Triage and settlement mutate each researcher's own row.
	_, err = svc.AcceptSubmission(ctx, "b1", researcherAddr, ownerAddr)
	require.NoError(t, err)

	res, err := svc.Close(ctx, "b1", ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Winners)
	require.Len(t, res.Refunds, 1)
	assert.Equal(t, otherAddr, res.Refunds[0].Recipient)

	byResearcher := map[string]string{}
	rows, err = store.ListSubmissions(ctx, "b1")
	require.NoError(t, err)
	for _, r := range rows {
		byResearcher[r.Researcher] = r.State
	}
	assert.Equal(t, "accepted", byResearcher[researcherAddr])
	assert.Equal(t, "refunded", byResearcher[otherAddr])
}
