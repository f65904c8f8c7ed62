package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemoryRateLimitRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := repo.CheckRateLimit(ctx, 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := repo.CheckRateLimit(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Another caller has an independent counter.
	allowed, err = repo.CheckRateLimit(ctx, 2, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryRateLimit_WindowExpiry(t *testing.T) {
	repo := NewMemoryRateLimitRepository()
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, 1, 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, 1, 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(30 * time.Millisecond)

	allowed, err = repo.CheckRateLimit(ctx, 1, 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}
