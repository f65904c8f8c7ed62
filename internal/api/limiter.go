package api

import (
	"net/http"
	"sync"
	"time"

	"rentloop/internal/config"
	"rentloop/internal/domain"

	"golang.org/x/time/rate"
)

// callerLimiter combines a per-caller token bucket with the shared
// windowed counter (Redis with in-memory failover).
type callerLimiter struct {
	limiters sync.Map
	cfg      *config.APIConfig
	repo     domain.RateLimitRepository
}

func newCallerLimiter(cfg *config.APIConfig, repo domain.RateLimitRepository) *callerLimiter {
	return &callerLimiter{cfg: cfg, repo: repo}
}

func (l *callerLimiter) getLimiter(callerID int64) *rate.Limiter {
	if v, ok := l.limiters.Load(callerID); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RateLimit.RPS), burst)
	actual, _ := l.limiters.LoadOrStore(callerID, lim)
	return actual.(*rate.Limiter)
}

// allow reports whether the caller may proceed.
func (l *callerLimiter) allow(r *http.Request, callerID int64) bool {
	if !l.getLimiter(callerID).Allow() {
		return false
	}

	if l.repo != nil {
		window := time.Duration(l.cfg.RateLimit.Window) * time.Second
		allowed, err := l.repo.CheckRateLimit(r.Context(), callerID, l.cfg.RateLimit.Limit, window)
		if err != nil {
			// Counter failure must not take the API down.
			return true
		}
		return allowed
	}
	return true
}
