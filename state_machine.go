package session

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_LIFECYCLE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_LIFECYCLE_STATE"
)

// ErrInvalidTransition is returned when a requested lifecycle change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid lifecycle transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// ErrTerminalState is returned when attempting to move away from the terminated state.
var ErrTerminalState = goerrors.New("lifecycle state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// State is the manager's lifecycle state.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateTerminated      State = "terminated"
)

// lifecycle validates state changes against a fixed transition graph.
// Session and profile are non-nil only in StateAuthenticated.
type lifecycle struct {
	transitions map[State]map[State]struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		transitions: map[State]map[State]struct{}{
			StateUninitialized: {
				StateInitializing: {},
				StateTerminated:   {},
			},
			StateInitializing: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateTerminated:      {},
			},
			StateAuthenticated: {
				StateUnauthenticated: {},
				StateTerminated:      {},
			},
			StateUnauthenticated: {
				StateAuthenticated: {},
				StateTerminated:    {},
			},
		},
	}
}

func (l *lifecycle) can(from, to State) bool {
	if allowed, ok := l.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// transition returns the resulting state, or an error when the change is not
// allowed. A same-state transition is a no-op, which is what lets a SIGNED_IN
// event replace the session of an already authenticated manager.
func (l *lifecycle) transition(from, to State) (State, error) {
	if to == "" {
		return from, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target state is empty",
		})
	}

	if from == to {
		return from, nil
	}

	if from == StateTerminated {
		return from, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	if !l.can(from, to) {
		return from, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	return to, nil
}
