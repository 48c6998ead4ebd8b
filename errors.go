package session

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeNoSession          = "session_not_found"
	TextCodeNotInitialized     = "session_manager_not_initialized"
	TextCodeTerminated         = "session_manager_terminated"
	TextCodeInvalidCredentials = "session_invalid_credentials"
	TextCodeBackendUnavailable = "session_backend_unavailable"
)

// ErrNoSession is returned when an operation requires a held session.
var ErrNoSession = errors.New("no session held", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ErrNotInitialized is returned when the manager is used before Initialize.
var ErrNotInitialized = errors.New("session manager not initialized", errors.CategoryOperation).
	WithTextCode(TextCodeNotInitialized).
	WithCode(errors.CodeConflict)

// ErrTerminated is returned when the manager has been torn down.
var ErrTerminated = errors.New("session manager terminated", errors.CategoryOperation).
	WithTextCode(TextCodeTerminated).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is returned for malformed sign-in payloads before the
// provider is contacted.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrBackendUnavailable is returned when the backend profile API cannot be
// reached for an explicit RefreshUser call.
var ErrBackendUnavailable = errors.New("backend profile api unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeBackendUnavailable).
	WithCode(errors.CodeInternal)

// ProviderError captures normalized identity-provider response details.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// criticalRefreshCodes are the provider error codes that mean the refresh
// credential itself is permanently invalid.
var criticalRefreshCodes = map[string]struct{}{
	"invalid_grant":           {},
	"invalid_token":           {},
	"refresh_token_not_found": {},
}

// IsCriticalRefreshError reports whether a refresh failure warrants a forced
// sign-out. Anything not explicitly recognized is treated as transient: a
// flaky network must not log the user out.
func IsCriticalRefreshError(err error) bool {
	if err == nil {
		return false
	}

	var perr *ProviderError
	if errors.As(err, &perr) {
		if _, ok := criticalRefreshCodes[perr.Code]; ok {
			return true
		}
		return perr.Status == 401 || perr.Status == 403
	}

	msg := err.Error()
	for code := range criticalRefreshCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}

	return false
}
