package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshDelay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("refreshes ahead of expiry", func(t *testing.T) {
		expiresAt := now.Add(400 * time.Second).Unix()
		assert.Equal(t, 100*time.Second, refreshDelay(expiresAt, now))
	})

	t.Run("inside the skew window fires immediately", func(t *testing.T) {
		expiresAt := now.Add(2 * time.Minute).Unix()
		assert.Equal(t, time.Duration(0), refreshDelay(expiresAt, now))
	})

	t.Run("already expired fires immediately", func(t *testing.T) {
		expiresAt := now.Add(-time.Hour).Unix()
		assert.Equal(t, time.Duration(0), refreshDelay(expiresAt, now))
	})

	t.Run("exactly at the skew boundary", func(t *testing.T) {
		expiresAt := now.Add(refreshSkew).Unix()
		assert.Equal(t, time.Duration(0), refreshDelay(expiresAt, now))
	})
}

func TestSchedulerReplacesPendingTimer(t *testing.T) {
	s := newRefreshScheduler(time.Now)
	defer s.Cancel()

	var first, second atomic.Int32

	s.ScheduleIn(10*time.Millisecond, func() { first.Add(1) })
	s.ScheduleIn(20*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(0), first.Load(), "replaced timer must not fire")
}

func TestSchedulerCancel(t *testing.T) {
	s := newRefreshScheduler(time.Now)

	var fired atomic.Int32
	s.ScheduleIn(10*time.Millisecond, func() { fired.Add(1) })
	require.True(t, s.Pending())

	s.Cancel()
	assert.False(t, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestSchedulerCancelWithoutTimer(t *testing.T) {
	s := newRefreshScheduler(nil)
	s.Cancel()
	assert.False(t, s.Pending())
}
