package session

// AuthEventType enumerates the provider auth events the Manager reacts to.
type AuthEventType string

const (
	EventSignedIn         AuthEventType = "SIGNED_IN"
	EventSignedOut        AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed   AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated      AuthEventType = "USER_UPDATED"
	EventPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
	EventUnknown          AuthEventType = ""
)

// ParseAuthEventType maps a raw provider event name onto the enum. Names the
// enum does not cover come back as EventUnknown so new provider events are
// handled by the adopt-if-session rule instead of being silently dropped.
func ParseAuthEventType(raw string) AuthEventType {
	switch AuthEventType(raw) {
	case EventSignedIn, EventSignedOut, EventTokenRefreshed, EventUserUpdated, EventPasswordRecovery:
		return AuthEventType(raw)
	default:
		return EventUnknown
	}
}

// AuthEvent is a provider auth notification. Session is nil when the event
// carries no session (e.g. SIGNED_OUT).
type AuthEvent struct {
	Type    AuthEventType
	Raw     string
	Session *Session
}

// AuthEventListener consumes provider auth events.
type AuthEventListener func(event AuthEvent)

// Unsubscribe removes a previously registered listener. Safe to call more
// than once.
type Unsubscribe func()
