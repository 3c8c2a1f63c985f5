package domain

import (
	"context"
	"log/slog"
	"time"

	bounty "github.com/bugchan/bountyd/internal/bounty/domain"
	"github.com/bugchan/bountyd/internal/storage"
)

// LoggingMiddleware returns a service middleware that logs all operations.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{
			next:   next,
			logger: logger,
		}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) Create(ctx context.Context, req CreateRequest) (*bounty.Bounty, error) {
	start := time.Now()
	b, err := m.next.Create(ctx, req)
	attrs := []any{
		"owner", req.Owner,
		"reward", req.Reward,
		"stake", req.StakeAmount,
		"duration", req.Duration,
		"duration_ms", time.Since(start),
		"error", err,
	}
	if b != nil {
		attrs = append(attrs, "bounty", b.ID)
	}
	m.logger.Info("Create", attrs...)
	return b, err
}

func (m *loggingMiddleware) Get(ctx context.Context, id string) (*bounty.Bounty, error) {
	start := time.Now()
	b, err := m.next.Get(ctx, id)
	m.logger.Debug("Get",
		"bounty", id,
		"duration", time.Since(start),
		"error", err,
	)
	return b, err
}

func (m *loggingMiddleware) List(ctx context.Context, filter ListFilter, pagination storage.PaginationParams) (*ListResult, error) {
	start := time.Now()
	res, err := m.next.List(ctx, filter, pagination)
	m.logger.Debug("List",
		"owner", filter.Owner,
		"status", filter.Status,
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}
