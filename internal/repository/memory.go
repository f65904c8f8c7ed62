package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimitRepository is the in-process fallback counter used
// when Redis is unavailable or not configured.
type MemoryRateLimitRepository struct {
	rateLimits sync.Map
}

func NewMemoryRateLimitRepository() *MemoryRateLimitRepository {
	return &MemoryRateLimitRepository{}
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryRateLimitRepository) CheckRateLimit(ctx context.Context, callerID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, _ := r.rateLimits.LoadOrStore(callerID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.expiresAt.IsZero() || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
