package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentloop/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverRateLimitRepository prefers the primary (Redis) counter and
// degrades to the in-memory fallback when it errors, probing the
// primary again after a cooldown.
type FailoverRateLimitRepository struct {
	primary   domain.RateLimitRepository
	fallback  domain.RateLimitRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverRateLimitRepository(primary, fallback domain.RateLimitRepository, logger *zerolog.Logger) *FailoverRateLimitRepository {
	return &FailoverRateLimitRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

const recoveryProbeInterval = time.Minute

func (r *FailoverRateLimitRepository) CheckRateLimit(ctx context.Context, callerID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, callerID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("primary rate limit repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(time.Now().UnixNano())
	}

	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryProbeInterval {
		allowed, err := r.primary.CheckRateLimit(ctx, callerID, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.CheckRateLimit(ctx, callerID, limit, window)
}
