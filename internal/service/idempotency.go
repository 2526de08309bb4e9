package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mdbrowse/internal/domain"
	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
	"mdbrowse/internal/metrics"
)

// DefaultIdempotencyTTL bounds how long a stored response stays
// replayable. Expiry is enforced lazily on lookup; there is no sweeper.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyOperation produces the HTTP status and response body of one
// mutating operation. It runs at most once per key.
type IdempotencyOperation func(ctx context.Context) (status int, body []byte, err error)

// IdempotencyService deduplicates mutating requests by client-supplied key.
type IdempotencyService struct {
	repo    repositories.IdempotencyRepository
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIdempotencyService creates a new idempotency service
func NewIdempotencyService(repo repositories.IdempotencyRepository, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{repo: repo, ttl: ttl, metrics: m, logger: logger}
}

// Guard executes op at most once for the given key. An empty key disables
// deduplication. A replay returns the stored status and body verbatim
// without re-executing op - no second version append, no second audit
// entry. Only successful operations are stored; a failed op leaves the key
// free for a retry.
func (s *IdempotencyService) Guard(ctx context.Context, key string, op IdempotencyOperation) (status int, body []byte, replayed bool, err error) {
	if key == "" {
		status, body, err = op(ctx)
		return status, body, false, err
	}

	record, err := s.repo.Get(ctx, key)
	if err == nil {
		if time.Since(record.CreatedAt) > s.ttl {
			if err := s.repo.Delete(ctx, key); err != nil {
				s.logger.Warn("failed to drop expired idempotency key", "key", key, "error", err)
			}
		} else {
			if s.metrics != nil {
				s.metrics.IdempotentReplays.Inc()
			}
			s.logger.Debug("idempotent replay", "key", key, "status", record.Status)
			return record.Status, record.Body, true, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	status, body, err = op(ctx)
	if err != nil {
		return status, body, false, err
	}

	putErr := s.repo.Put(ctx, &models.IdempotencyRecord{
		Key:       key,
		Status:    status,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if putErr != nil {
		// A concurrent request with the same key won the store; serve its
		// response so both callers observe identical bytes.
		if errors.Is(putErr, domain.ErrConflict) {
			if stored, getErr := s.repo.Get(ctx, key); getErr == nil {
				return stored.Status, stored.Body, true, nil
			}
		}
		s.logger.Warn("failed to store idempotency record", "key", key, "error", putErr)
	}
	return status, body, false, nil
}
