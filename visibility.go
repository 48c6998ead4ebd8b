package session

import (
	"context"
)

// VisibilitySource reports when the application regains foreground
// visibility. Each receive on the channel triggers one revalidation cycle.
type VisibilitySource interface {
	Visible() <-chan struct{}
}

// VisibilityChannel adapts a plain channel to the VisibilitySource interface.
type VisibilityChannel <-chan struct{}

func (c VisibilityChannel) Visible() <-chan struct{} {
	return c
}

func (m *Manager) startVisibilityPump() {
	if m.visibility == nil {
		return
	}

	m.pumpOnce.Do(func() {
		go func() {
			for {
				select {
				case _, ok := <-m.visibility.Visible():
					if !ok {
						return
					}
					m.Revalidate(m.base)
				case <-m.base.Done():
					return
				}
			}
		}()
	})
}

// Revalidate re-checks the provider session after the application regains
// visibility. A session invalidated while backgrounded is dropped; a session
// established out-of-band (e.g. another tab) is adopted. Best effort: every
// failure is logged and swallowed, never surfaced.
func (m *Manager) Revalidate(ctx context.Context) {
	m.mu.Lock()
	if !m.initialized || m.state == StateTerminated {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	sess, err := m.gateway.GetSession(ctx)
	if err != nil {
		m.logger.Debug("revalidation cycle skipped: %v", err)
		return
	}

	m.mu.Lock()
	if m.state == StateTerminated {
		m.mu.Unlock()
		return
	}

	var (
		adopted     *Session
		needResolve bool
		dropped     string
	)

	switch {
	case sess == nil && m.session != nil:
		dropped = m.session.UserID
		m.clearSessionLocked()
	case sess != nil && m.session == nil:
		needResolve = m.adoptSessionLocked(sess)
		adopted = sess
	default:
		// both held or both absent, nothing to reconcile
		m.mu.Unlock()
		return
	}

	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)

	if needResolve && adopted != nil {
		go m.resolveProfile(adopted)
	}
	if dropped != "" {
		m.record(ctx, ActivityEventSessionRevoked, dropped, map[string]any{
			"reason": "revalidation",
		})
	}
}
