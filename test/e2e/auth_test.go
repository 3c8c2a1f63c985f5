//go:build e2e

package e2e

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugchan/bountyd/pkg/client"
)

// TestAuthRequired verifies that write endpoints require an API key while
// read endpoints stay open.
func TestAuthRequired(t *testing.T) {
	ctx := context.Background()

	// Unauthenticated client
	anon := newClient(testCtx.TestServer, "")

	// Writes fail without a key
	_, err := anon.CreateBounty(ctx, client.CreateBountyRequest{
		Owner:       ownerWallet,
		ContentRef:  scopeCID,
		Reward:      "1000",
		StakeAmount: "10",
		Duration:    3600,
	})
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)

	// Reads work without a key
	_, err = anon.ListBounties(ctx, client.ListBountiesOptions{Limit: 5})
	assert.NoError(t, err)
}

// TestInvalidAPIKey verifies a bogus key is rejected
func TestInvalidAPIKey(t *testing.T) {
	ctx := context.Background()

	c := newClient(testCtx.TestServer, "bd_key_nonsense")
	_, err := c.CreateBounty(ctx, client.CreateBountyRequest{
		Owner:       ownerWallet,
		ContentRef:  scopeCID,
		Reward:      "1000",
		StakeAmount: "10",
		Duration:    3600,
	})
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

// TestRevokedKey verifies revocation takes effect
func TestRevokedKey(t *testing.T) {
	ctx := context.Background()

	key := createTestAPIKey(t, testCtx.Store, "to-revoke")
	c := newClient(testCtx.TestServer, key)

	// Works before revocation
	_, err := c.CreateBounty(ctx, client.CreateBountyRequest{
		Owner:       ownerWallet,
		ContentRef:  scopeCID,
		Reward:      "1000",
		StakeAmount: "10",
		Duration:    3600,
	})
	require.NoError(t, err)

	keys, err := testCtx.Store.ListAPIKeys(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		if k.Name == "to-revoke" {
			require.NoError(t, testCtx.Store.RevokeAPIKey(ctx, k.ID))
		}
	}

	// Revoked key is refused
	_, err = c.CreateBounty(ctx, client.CreateBountyRequest{
		Owner:       ownerWallet,
		ContentRef:  scopeCID,
		Reward:      "1000",
		StakeAmount: "10",
		Duration:    3600,
	})
	require.Error(t, err)
}

// TestHealthEndpoints verifies liveness and readiness probes
func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		resp, err := http.Get(testCtx.TestServer.URL + path)
		require.NoError(t, err, "GET %s", path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET %s", path)
		resp.Body.Close()
	}
}
