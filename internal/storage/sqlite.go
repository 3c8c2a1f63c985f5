package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Bounties
	CREATE TABLE IF NOT EXISTS bounties (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		triager TEXT,
		content_ref TEXT NOT NULL,
		reward_pool TEXT NOT NULL,
		initial_reward TEXT NOT NULL,
		stake_amount TEXT NOT NULL,
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
		stake TEXT NOT NULL,
		state TEXT NOT NULL,
		visibility TEXT NOT NULL,
		severity TEXT NOT NULL,
		created_at TEXT NOT NULL,
		resolved_at TEXT,
		UNIQUE(bounty_id, researcher)
	);

	-- Audit events, append-only
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		bounty_id TEXT NOT NULL REFERENCES bounties(id),
		type TEXT NOT NULL,
		researcher TEXT,
		recipient TEXT,
		amount TEXT,
		content_ref TEXT,
		meta TEXT,
		created_at TEXT NOT NULL
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
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

func insertEventTx(ctx context.Context, tx *sql.Tx, e *Event) error {
	query := `
		INSERT INTO events (bounty_id, type, researcher, recipient, amount, content_ref, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	meta, err := marshalMeta(e.Meta)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, e.BountyID, e.Type, e.Researcher, e.Recipient, e.Amount, e.ContentRef, meta, e.CreatedAt)
	return err
}

// CreateBounty inserts a bounty and its creation events in one transaction
func (s *SQLiteStore) CreateBounty(ctx context.Context, b *Bounty, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bounties (id, owner, triager, content_ref, reward_pool, initial_reward, stake_amount, status, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, b.ID, b.Owner, b.Triager, b.ContentRef, b.RewardPool, b.InitialReward, b.StakeAmount, b.Status, b.EndTime, b.CreatedAt); err != nil {
		return err
	}
	for i := range events {
		if err := insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetBounty retrieves a bounty by id
func (s *SQLiteStore) GetBounty(ctx context.Context, id string) (*Bounty, error) {
	query := `
		SELECT id, owner, COALESCE(triager, ''), content_ref, reward_pool, initial_reward, stake_amount, status, end_time, created_at, COALESCE(closed_at, '')
		FROM bounties
		WHERE id = ?
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

// ListBounties lists bounties with filtering and cursor-based pagination.
// The cursor is the id of the last bounty on the previous page; ordering
// is by id for a stable, unbounded-safe enumeration.
func (s *SQLiteStore) ListBounties(ctx context.Context, filter BountyFilter, pagination PaginationParams) (*PaginatedResult[Bounty], error) {
	query := `
		SELECT id, owner, COALESCE(triager, ''), content_ref, reward_pool, initial_reward, stake_amount, status, end_time, created_at, COALESCE(closed_at, '')
		FROM bounties
	`
	var conds []string
	var args []any
	if pagination.Cursor != "" {
		conds = append(conds, "id > ?")
		args = append(args, pagination.Cursor)
	}
	if filter.Owner != "" {
		conds = append(conds, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, pagination.Limit+1)

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
	}
	if hasMore && len(bounties) > 0 {
		nextCursor = bounties[len(bounties)-1].ID
	}

	return &PaginatedResult[Bounty]{
		Data:       bounties,
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}, rows.Err()
}

// CreateSubmission inserts a submission and its events in one transaction
func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *Submission, events []Event) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, sub.ID, sub.BountyID, sub.Researcher, sub.ContentRef, sub.Stake, sub.State, sub.Visibility, sub.Severity, sub.CreatedAt); err != nil {
		// Only the per-researcher constraint maps to ErrDuplicate.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: submissions.bounty_id") {
			return ErrDuplicate
		}
		return err
	}
	for i := range events {
		if err := insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSubmission retrieves a submission by bounty and researcher
func (s *SQLiteStore) GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	query := `
		SELECT id, bounty_id, researcher, content_ref, stake, state, visibility, severity, created_at, COALESCE(resolved_at, '')
		FROM submissions
		WHERE bounty_id = ? AND researcher = ?
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
func (s *SQLiteStore) ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error) {
	query := `
		SELECT id, bounty_id, researcher, content_ref, stake, state, visibility, severity, created_at, COALESCE(resolved_at, '')
		FROM submissions
		WHERE bounty_id = ?
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
func updateSubmissionTx(ctx context.Context, tx *sql.Tx, sub *Submission) error {
	query := `
		UPDATE submissions
		SET content_ref = ?, stake = ?, state = ?, visibility = ?, severity = ?, resolved_at = NULLIF(?, '')
		WHERE bounty_id = ? AND researcher = ?
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
func (s *SQLiteStore) UpdateSubmission(ctx context.Context, sub *Submission, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateSubmissionTx(ctx, tx, sub); err != nil {
		return err
	}
	for i := range events {
		if err := insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CloseBounty commits a settlement: bounty terminal state, every touched
// submission, and the settlement events, in one transaction
func (s *SQLiteStore) CloseBounty(ctx context.Context, b *Bounty, subs []Submission, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE bounties
		SET reward_pool = ?, status = ?, closed_at = ?
		WHERE id = ? AND status = 'open'
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
		if err := updateSubmissionTx(ctx, tx, &subs[i]); err != nil {
			return err
		}
	}
	for i := range events {
		if err := insertEventTx(ctx, tx, &events[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListEvents lists audit events for a bounty, oldest first. The cursor
// is the last seen sequence number.
func (s *SQLiteStore) ListEvents(ctx context.Context, bountyID string, pagination PaginationParams) (*PaginatedResult[Event], error) {
	query := `
		SELECT seq, bounty_id, type, COALESCE(researcher, ''), COALESCE(recipient, ''), COALESCE(amount, ''), COALESCE(content_ref, ''), COALESCE(meta, ''), created_at
		FROM events
		WHERE bounty_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
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
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	hash := hashAPIKey(key)
	id := generateID()
	_, err := s.db.ExecContext(ctx, "INSERT INTO api_keys (id, key_hash, name, created_at) VALUES (?, ?, ?, datetime('now'))", id, hash, name)
	if err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey validates an API key
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	hash := hashAPIKey(key)
	var ak APIKey
	err := s.db.QueryRowContext(ctx, "SELECT id, key_hash, name, created_at FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL", hash).Scan(
		&ak.ID, &ak.KeyHash, &ak.Name, &ak.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	// Update last used
	_, _ = s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?", ak.ID)
	return &ak, err
}

// ListAPIKeys lists all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at, last_used_at FROM api_keys WHERE revoked_at IS NULL")
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
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ?", id)
	return err
}
