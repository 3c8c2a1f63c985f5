package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bugchan/bountyd/internal/config"
)

// BountyStore handles bounty records.
type BountyStore interface {
	CreateBounty(ctx context.Context, b *Bounty, events []Event) error
	GetBounty(ctx context.Context, id string) (*Bounty, error)
	ListBounties(ctx context.Context, filter BountyFilter, pagination PaginationParams) (*PaginatedResult[Bounty], error)
}

// SubmissionStore handles submission records.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *Submission, events []Event) error
	GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error)
	ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error)

	// UpdateSubmission persists a submission mutation plus its audit
	// events in one transaction.
	UpdateSubmission(ctx context.Context, sub *Submission, events []Event) error
}

// SettlementStore commits the close of a bounty: the bounty row, every
// touched submission, and the settlement events, atomically.
type SettlementStore interface {
	CloseBounty(ctx context.Context, b *Bounty, subs []Submission, events []Event) error
}

// EventStore reads the append-only audit trail.
type EventStore interface {
	ListEvents(ctx context.Context, bountyID string, pagination PaginationParams) (*PaginatedResult[Event], error)
}

// APIKeyStore handles API key operations.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on usage.
type Store interface {
	BountyStore
	SubmissionStore
	SettlementStore
	EventStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Bounty is a stored bounty program. Amounts are decimal wei strings;
// the domain layer parses them into 256-bit integers.
type Bounty struct {
	ID            string
	Owner         string
	Triager       string
	ContentRef    string
	RewardPool    string // remaining pool
	InitialReward string // pool funded at creation, immutable
	StakeAmount   string // immutable per-submission deposit
	Status        string // "open" or "closed"
	EndTime       string
	CreatedAt     string
	ClosedAt      string
}

// Submission is a stored report for one researcher on one bounty.
// UNIQUE(bounty_id, researcher) enforces one submission per wallet.
type Submission struct {
	ID         string
	BountyID   string
	Researcher string
	ContentRef string
	Stake      string // decimal wei; zeroed once resolved
	State      string // pending/accepted/rejected/refunded
	Visibility string // private/public
	Severity   string // none/low/medium/high/critical
	CreatedAt  string
	ResolvedAt string
}

// Event is one entry of the audit trail. Rows are append-only and
// written in the same transaction as the state change they describe.
type Event struct {
	Seq        int64
	BountyID   string
	Type       string
	Researcher string
	Recipient  string
	Amount     string // decimal wei, empty when no funds moved
	ContentRef string
	Meta       map[string]any
	CreatedAt  string
}

// APIKey represents an API key.
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// BountyFilter contains filter options for listing bounties.
type BountyFilter struct {
	Owner  string
	Status string
}

// PaginationParams contains pagination options.
type PaginationParams struct {
	Limit  int
	Cursor string
}

// PaginatedResult contains paginated results.
type PaginatedResult[T any] struct {
	Data       []T
	HasMore    bool
	NextCursor string
}

// New creates a new store based on configuration.
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
