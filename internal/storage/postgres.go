package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Bounties
	CREATE TABLE IF NOT EXISTS bounties (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		triager TEXT,
		content_ref TEXT NOT NULL,
		reward_pool NUMERIC(78, 0) NOT NULL,
		initial_reward NUMERIC(78, 0) NOT NULL,
		stake_amount NUMERIC(78, 0) NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		end_time TEXT NOT NULL,
		created_at TEXT NOT NULL,
		closed_at TEXT
	);

	-- Submissions: one per researcher per bounty
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		bounty_id TEXT NOT NULL REFERENCES bounties(id),
		researcher TEXT NOT NULL,
		content_ref TEXT NOT NULL,
		stake NUMERIC(78, 0) NOT NULL,
		state TEXT NOT NULL,
		visibility TEXT NOT NULL,
		severity TEXT NOT NULL,
		created_at TEXT NOT NULL,
		resolved_at TEXT,
		CONSTRAINT submissions_one_per_researcher UNIQUE(bounty_id, researcher)
	);

	-- Audit events, append-only
	CREATE TABLE IF NOT EXISTS events (
		seq BIGSERIAL PRIMARY KEY,
		bounty_id TEXT NOT NULL REFERENCES bounties(id),
		type TEXT NOT NULL,
		researcher TEXT,
		recipient TEXT,
		amount NUMERIC(78, 0),
		content_ref TEXT,
		meta JSONB,
		created_at TEXT NOT NULL
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_bounties_owner ON bounties(owner);
	CREATE INDEX IF NOT EXISTS idx_bounties_status ON bounties(status);
	CREATE INDEX IF NOT EXISTS idx_submissions_bounty ON submissions(bounty_id);
	CREATE INDEX IF NOT EXISTS idx_events_bounty ON events(bounty_id, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

func (s *PostgresStore) insertEventTx(ctx context.Context, tx *sql.Tx, e *Event) error {
	query := `
		INSERT INTO events (bounty_id, type, researcher, recipient, amount, content_ref, meta, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, '')::numeric, NULLIF($6, ''), NULLIF($7, '')::jsonb, $8)
	`
	meta, err := marshalMeta(e.Meta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, e.BountyID, e.Type, e.Researcher, e.Recipient, e.Amount, e.ContentRef, meta, e.CreatedAt)
	return err
}

// CreateBounty inserts a bounty and its creation events in one transaction
func (s *PostgresStore) CreateBounty(ctx context.Context, b *Bounty, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bounties (id, owner, triager, content_ref, reward_pool, initial_reward, stake_amount, status, end_time, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, query, b.ID, b.Owner, b.Triager, b.ContentRef, b.RewardPool, b.InitialReward, b.StakeAmount, b.Status, b.EndTime, b.CreatedAt); err != nil {
		return err
	}
	for i := range events {
		if err := s.insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetBounty retrieves a bounty by id
func (s *PostgresStore) GetBounty(ctx context.Context, id string) (*Bounty, error) {
	query := `
		SELECT id, owner, COALESCE(triager, ''), content_ref, reward_pool::text, initial_reward::text, stake_amount::text, status, end_time, created_at, COALESCE(closed_at, '')
		FROM bounties
		WHERE id = $1
	`
	var b Bounty
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Owner, &b.Triager, &b.ContentRef, &b.RewardPool, &b.InitialReward, &b.StakeAmount, &b.Status, &b.EndTime, &b.CreatedAt, &b.ClosedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &b, err
}

// ListBounties lists bounties with filtering and cursor-based pagination
func (s *PostgresStore) ListBounties(ctx context.Context, filter BountyFilter, pagination PaginationParams) (*PaginatedResult[Bounty], error) {
	query := `
		SELECT id, owner, COALESCE(triager, ''), content_ref, reward_pool::text, initial_reward::text, stake_amount::text, status, end_time, created_at, COALESCE(closed_at, '')
		FROM bounties
	`
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if pagination.Cursor != "" {
		conds = append(conds, "id > "+arg(pagination.Cursor))
	}
	if filter.Owner != "" {
		conds = append(conds, "owner = "+arg(filter.Owner))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id LIMIT " + arg(pagination.Limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bounties []Bounty
	for rows.Next() {
		var b Bounty
		if err := rows.Scan(&b.ID, &b.Owner, &b.Triager, &b.ContentRef, &b.RewardPool, &b.InitialReward, &b.StakeAmount, &b.Status, &b.EndTime, &b.CreatedAt, &b.ClosedAt); err != nil {
			return nil, err
		}
		bounties = append(bounties, b)
	}

	hasMore := len(bounties) > pagination.Limit
	var nextCursor string
	if hasMore {
		bounties = bounties[:pagination.Limit]
		nextCursor = bounties[len(bounties)-1].ID
	}

	return &PaginatedResult[Bounty]{
		Data:       bounties,
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}, rows.Err()
}

// CreateSubmission inserts a submission and its events in one transaction
func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *Submission, events []Event) error {
	if sub.ID == "" {
		sub.ID = generateID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO submissions (id, bounty_id, researcher, content_ref, stake, state, visibility, severity, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, query, sub.ID, sub.BountyID, sub.Researcher, sub.ContentRef, sub.Stake, sub.State, sub.Visibility, sub.Severity, sub.CreatedAt); err != nil {
		// Only the per-researcher constraint maps to ErrDuplicate.
		if strings.Contains(err.Error(), "submissions_one_per_researcher") {
			return ErrDuplicate
		}
		return err
	}
	for i := range events {
		if err := s.insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSubmission retrieves a submission by bounty and researcher
func (s *PostgresStore) GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	query := `
		SELECT id, bounty_id, researcher, content_ref, stake::text, state, visibility, severity, created_at, COALESCE(resolved_at, '')
		FROM submissions
		WHERE bounty_id = $1 AND researcher = $2
	`
	var sub Submission
	err := s.db.QueryRowContext(ctx, query, bountyID, researcher).Scan(
		&sub.ID, &sub.BountyID, &sub.Researcher, &sub.ContentRef, &sub.Stake, &sub.State, &sub.Visibility, &sub.Severity, &sub.CreatedAt, &sub.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &sub, err
}

// ListSubmissions lists all submissions for a bounty in insertion order
func (s *PostgresStore) ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error) {
	query := `
		SELECT id, bounty_id, researcher, content_ref, stake::text, state, visibility, severity, created_at, COALESCE(resolved_at, '')
		FROM submissions
		WHERE bounty_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, bountyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.BountyID, &sub.Researcher, &sub.ContentRef, &sub.Stake, &sub.State, &sub.Visibility, &sub.Severity, &sub.CreatedAt, &sub.ResolvedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// updateSubmissionTx keys on (bounty_id, researcher), the natural
// submission identity; the id column is a surrogate the domain never
// carries.
func (s *PostgresStore) updateSubmissionTx(ctx context.Context, tx *sql.Tx, sub *Submission) error {
	query := `
		UPDATE submissions
		SET content_ref = $1, stake = $2::numeric, state = $3, visibility = $4, severity = $5, resolved_at = NULLIF($6, '')
		WHERE bounty_id = $7 AND researcher = $8
	`
	res, err := tx.ExecContext(ctx, query, sub.ContentRef, sub.Stake, sub.State, sub.Visibility, sub.Severity, sub.ResolvedAt, sub.BountyID, sub.Researcher)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSubmission persists a submission mutation and its events atomically
func (s *PostgresStore) UpdateSubmission(ctx context.Context, sub *Submission, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.updateSubmissionTx(ctx, tx, sub); err != nil {
		return err
	}
	for i := range events {
		if err := s.insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CloseBounty commits a settlement atomically
func (s *PostgresStore) CloseBounty(ctx context.Context, b *Bounty, subs []Submission, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE bounties
		SET reward_pool = $1::numeric, status = $2, closed_at = $3
		WHERE id = $4 AND status = 'open'
	`
	res, err := tx.ExecContext(ctx, query, b.RewardPool, b.Status, b.ClosedAt, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	for i := range subs {
		if err := s.updateSubmissionTx(ctx, tx, &subs[i]); err != nil {
			return err
		}
	}
	for i := range events {
		if err := s.insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListEvents lists audit events for a bounty, oldest first
func (s *PostgresStore) ListEvents(ctx context.Context, bountyID string, pagination PaginationParams) (*PaginatedResult[Event], error) {
	query := `
		SELECT seq, bounty_id, type, COALESCE(researcher, ''), COALESCE(recipient, ''), COALESCE(amount::text, ''), COALESCE(content_ref, ''), COALESCE(meta::text, ''), created_at
		FROM events
		WHERE bounty_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3
	`
	var after int64
	if pagination.Cursor != "" {
		v, err := strconv.ParseInt(pagination.Cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		after = v
	}

	rows, err := s.db.QueryContext(ctx, query, bountyID, after, pagination.Limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var meta string
		if err := rows.Scan(&e.Seq, &e.BountyID, &e.Type, &e.Researcher, &e.Recipient, &e.Amount, &e.ContentRef, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMeta(meta, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	hasMore := len(events) > pagination.Limit
	var nextCursor string
	if hasMore {
		events = events[:pagination.Limit]
		nextCursor = strconv.FormatInt(events[len(events)-1].Seq, 10)
	}

	return &PaginatedResult[Event]{
		Data:       events,
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}, rows.Err()
}

// CreateAPIKey creates a new API key
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name) VALUES ($1, $2, $3)", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at::text FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = NOW() WHERE id = $1", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at::text, last_used_at::text FROM api_keys WHERE revoked_at IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullString
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			k.LastUsedAt = lastUsed.String
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey revokes an API key
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = NOW() WHERE id = $1", id)
	return err
}
