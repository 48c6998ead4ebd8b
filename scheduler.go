package session

import (
	"sync"
	"time"
)

// refreshSkew is how long before token expiry a refresh is attempted.
const refreshSkew = 5 * time.Minute

// defaultRetryInterval paces refresh retries after a transient failure.
const defaultRetryInterval = 30 * time.Second

// refreshDelay computes when the scheduled refresh should fire for a session
// expiring at the given epoch-seconds instant. Sessions already inside the
// skew window refresh immediately.
func refreshDelay(expiresAt int64, now time.Time) time.Duration {
	d := time.Unix(expiresAt, 0).Sub(now) - refreshSkew
	if d < 0 {
		return 0
	}
	return d
}

// refreshScheduler owns at most one live timer. Scheduling always cancels the
// previous timer first, so redundant expiry updates never accumulate timers.
type refreshScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	now   func() time.Time
}

func newRefreshScheduler(clock func() time.Time) *refreshScheduler {
	if clock == nil {
		clock = time.Now
	}
	return &refreshScheduler{now: clock}
}

// Schedule arms the refresh for a session expiring at expiresAt, replacing
// any pending timer.
func (s *refreshScheduler) Schedule(expiresAt int64, fn func()) {
	s.ScheduleIn(refreshDelay(expiresAt, s.now()), fn)
}

// ScheduleIn arms the refresh after an explicit delay, replacing any pending
// timer. Used for transient-failure retries.
func (s *refreshScheduler) ScheduleIn(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, fn)
}

// Cancel stops any pending timer. Called on sign-out and teardown.
func (s *refreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a refresh is currently scheduled.
func (s *refreshScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
