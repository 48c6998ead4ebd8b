package session

import (
	"fmt"
	"time"
)

// Session is the credential pair plus expiry that authorizes API calls. It is
// replaced wholesale on every sign-in and refresh, never mutated in place.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresAt is the access token expiry in epoch seconds.
	ExpiresAt int64  `json:"expires_at,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

// ExpiresIn returns how long the session remains valid relative to now.
// Negative values mean the session is already expired.
func (s *Session) ExpiresIn(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	return time.Unix(s.ExpiresAt, 0).Sub(now)
}

// Expired reports whether the access token expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return s.ExpiresIn(now) <= 0
}

// Clone returns a copy so published snapshots cannot be mutated by consumers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}

// String keeps tokens out of logs.
func (s Session) String() string {
	return fmt.Sprintf(
		"user=%s email=%s expires_at=%s",
		s.UserID,
		s.Email,
		time.Unix(s.ExpiresAt, 0).Format(time.RFC1123),
	)
}
