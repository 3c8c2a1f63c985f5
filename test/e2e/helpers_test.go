//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bugchan/bountyd/internal/config"
	"github.com/bugchan/bountyd/internal/server"
	"github.com/bugchan/bountyd/internal/storage"
	"github.com/bugchan/bountyd/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Test wallets. Checksummed casing is intentional on ownerWallet to
// exercise address normalization end to end.
const (
	ownerWallet      = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	triagerWallet    = "0x2222222222222222222222222222222222222222"
	researcherWallet = "0x3333333333333333333333333333333333333333"
	secondResearcher = "0x4444444444444444444444444444444444444444"
	thirdResearcher  = "0x5555555555555555555555555555555555555555"

	scopeCID  = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	reportCID = "QmbWqxBEKC3P8tqsKc98xmWNzrzDtRLMiMPL8wBuTGsMnR"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("bountyd"),
		postgres.WithUsername("bountyd"),
		postgres.WithPassword("bountyd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the bountyd server in-process against the given Postgres
func startServerE(connString string) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Auth:      config.AuthConfig{Type: "api-key"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{FilterEnabled: false, MaxBodySizeMB: 10},
		Proxy:     config.ProxyConfig{TrustProxy: false},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.New(cfg, store, logger)
	testServer := httptest.NewServer(srv.Handler())

	return testServer, store, nil
}

// newClient creates an API client for the test server
func newClient(testServer *httptest.Server, apiKey string) *client.Client {
	return client.New(testServer.URL, apiKey)
}

// createTestAPIKey creates an API key using the store directly
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// createTestBounty creates a standard bounty and returns it
func createTestBounty(t *testing.T, c *client.Client, reward, stake string, duration int64) *client.Bounty {
	bounty, err := c.CreateBounty(context.Background(), client.CreateBountyRequest{
		Owner:       ownerWallet,
		Triager:     triagerWallet,
		ContentRef:  scopeCID,
		Reward:      reward,
		StakeAmount: stake,
		Duration:    duration,
	})
	require.NoError(t, err, "Failed to create bounty")
	return bounty
}

// submitTestReport submits a report with the bounty's exact stake
func submitTestReport(t *testing.T, c *client.Client, bountyID, researcher, stake string) *client.Submission {
	sub, err := c.SubmitReport(context.Background(), bountyID, client.SubmitReportRequest{
		Researcher: researcher,
		ContentRef: reportCID,
		Deposit:    stake,
	})
	require.NoError(t, err, "Failed to submit report")
	return sub
}
