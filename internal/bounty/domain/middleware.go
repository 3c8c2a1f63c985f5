package domain

import (
	"context"
	"log/slog"
	"time"

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

func (m *loggingMiddleware) SubmitReport(ctx context.Context, bountyID string, req SubmitRequest) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.SubmitReport(ctx, bountyID, req)
	m.logger.Info("SubmitReport",
		"bounty", bountyID,
		"researcher", req.Researcher,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) AcceptSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.AcceptSubmission(ctx, bountyID, researcher, caller)
	m.logger.Info("AcceptSubmission",
		"bounty", bountyID,
		"researcher", researcher,
		"caller", caller,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) RejectSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.RejectSubmission(ctx, bountyID, researcher, caller)
	m.logger.Info("RejectSubmission",
		"bounty", bountyID,
		"researcher", researcher,
		"caller", caller,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) SetSeverity(ctx context.Context, bountyID, researcher, caller string, severity Severity) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.SetSeverity(ctx, bountyID, researcher, caller, severity)
	m.logger.Info("SetSeverity",
		"bounty", bountyID,
		"researcher", researcher,
		"severity", severity,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) SetVisibility(ctx context.Context, bountyID, researcher, caller string, visibility Visibility, contentRef string) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.SetVisibility(ctx, bountyID, researcher, caller, visibility, contentRef)
	m.logger.Info("SetVisibility",
		"bounty", bountyID,
		"researcher", researcher,
		"visibility", visibility,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) Close(ctx context.Context, bountyID, caller string) (*CloseResult, error) {
	start := time.Now()
	res, err := m.next.Close(ctx, bountyID, caller)
	attrs := []any{
		"bounty", bountyID,
		"caller", caller,
		"duration", time.Since(start),
		"error", err,
	}
	if res != nil {
		attrs = append(attrs, "winners", res.Winners, "totalPaid", res.TotalPaid.Dec())
	}
	m.logger.Info("Close", attrs...)
	return res, err
}

func (m *loggingMiddleware) CloseIfExpired(ctx context.Context, bountyID string) (*CloseResult, error) {
	start := time.Now()
	res, err := m.next.CloseIfExpired(ctx, bountyID)
	attrs := []any{
		"bounty", bountyID,
		"duration", time.Since(start),
		"error", err,
	}
	if res != nil {
		attrs = append(attrs, "winners", res.Winners, "totalPaid", res.TotalPaid.Dec())
	}
	m.logger.Info("CloseIfExpired", attrs...)
	return res, err
}

func (m *loggingMiddleware) GetBounty(ctx context.Context, bountyID string) (*Bounty, error) {
	start := time.Now()
	b, err := m.next.GetBounty(ctx, bountyID)
	m.logger.Debug("GetBounty",
		"bounty", bountyID,
		"duration", time.Since(start),
		"error", err,
	)
	return b, err
}

func (m *loggingMiddleware) GetSubmission(ctx context.Context, bountyID, researcher string) (*Submission, error) {
	start := time.Now()
	sub, err := m.next.GetSubmission(ctx, bountyID, researcher)
	m.logger.Debug("GetSubmission",
		"bounty", bountyID,
		"researcher", researcher,
		"duration", time.Since(start),
		"error", err,
	)
	return sub, err
}

func (m *loggingMiddleware) ListSubmissions(ctx context.Context, bountyID string) ([]Submission, error) {
	start := time.Now()
	subs, err := m.next.ListSubmissions(ctx, bountyID)
	m.logger.Debug("ListSubmissions",
		"bounty", bountyID,
		"count", len(subs),
		"duration", time.Since(start),
		"error", err,
	)
	return subs, err
}

func (m *loggingMiddleware) ListEvents(ctx context.Context, bountyID string, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Event], error) {
	start := time.Now()
	res, err := m.next.ListEvents(ctx, bountyID, pagination)
	m.logger.Debug("ListEvents",
		"bounty", bountyID,
		"duration", time.Since(start),
		"error", err,
	)
	return res, err
}
