package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle_BurstThenReject(t *testing.T) {
	th := NewThrottle(0.01, 2, time.Minute)

	ok, _ := th.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = th.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, wait := th.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// separate bucket per key
	ok, _ = th.Allow("10.0.0.2")
	assert.True(t, ok)
}

func TestThrottle_Refills(t *testing.T) {
	th := NewThrottle(1000, 1, time.Minute)

	ok, _ := th.Allow("k")
	assert.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	ok, _ = th.Allow("k")
	assert.True(t, ok)
}

func TestThrottle_CleanupRemovesIdleEntries(t *testing.T) {
	th := NewThrottle(10, 1, 2*time.Millisecond)

	th.Allow("k")
	assert.Equal(t, 1, th.size())

	time.Sleep(5 * time.Millisecond)
	th.Cleanup()
	assert.Equal(t, 0, th.size())
}
