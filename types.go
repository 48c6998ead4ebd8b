package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ProviderGateway is the capability surface of the external identity
// provider. Implementations own persistence of the raw session blob;
// the Manager only ever holds the decoded Session in memory.
type ProviderGateway interface {
	// GetSession returns the currently persisted session, refreshed if the
	// provider deems it stale, or nil when no session exists.
	GetSession(ctx context.Context) (*Session, error)

	// SignIn exchanges credentials for a session. Errors are returned
	// verbatim so callers can surface them.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignUp registers a new identity. The provider sends its own
	// verification email; no session is established.
	SignUp(ctx context.Context, email, password string) error

	// SignInWithOAuth begins an OAuth flow and returns the URL the caller
	// must navigate to.
	SignInWithOAuth(ctx context.Context, provider string) (string, error)

	// SignOut revokes the persisted session.
	SignOut(ctx context.Context) error

	// RefreshSession exchanges the refresh token for a new session.
	RefreshSession(ctx context.Context) (*Session, error)

	// OnAuthStateChange registers a listener for provider auth events and
	// returns a handle that removes it.
	OnAuthStateChange(fn AuthEventListener) Unsubscribe
}

// ProfileStore is the backend record store the Synchronizer reconciles
// against. Lookups for missing rows must return a NotFound category error.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*ProfileRecord, error)
	Insert(ctx context.Context, record *ProfileRecord) (*ProfileRecord, error)
}

// BackendAPI exposes the backend's view of the current user, used by the
// explicit RefreshUser operation.
type BackendAPI interface {
	GetCurrentUser(ctx context.Context, accessToken string) (*UserProfile, error)
}

// CallbackMarker signals a pending external-auth callback in the current
// location (e.g. URL fragment tokens after an OAuth redirect). Strip removes
// the marker so a reload does not re-process it.
type CallbackMarker interface {
	Pending() bool
	Strip()
}

// TokenSource yields the current access token without blocking. The Manager
// implements it so request-signing code has a synchronous token supply.
type TokenSource interface {
	Token() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
