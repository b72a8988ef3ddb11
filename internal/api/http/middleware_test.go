package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiterEvictsIdleBuckets(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(1, 1)
	limiter.now = func() time.Time { return clock }

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.size())

	clock = clock.Add(limiterIdleTTL / 2)
	assert.True(t, limiter.allow("10.0.0.2"))

	clock = clock.Add(limiterIdleTTL/2 + time.Second)
	assert.True(t, limiter.allow("10.0.0.3"))
	assert.Equal(t, 2, limiter.size(), "10.0.0.1 idle past the ttl is dropped")

	clock = clock.Add(2 * limiterIdleTTL)
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.Equal(t, 1, limiter.size())
}
