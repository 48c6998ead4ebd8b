package session_test

import (
	"errors"
	"fmt"
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
)

func TestIsCriticalRefreshError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		critical bool
	}{
		{"nil", nil, false},
		{
			"invalid_grant code",
			&session.ProviderError{Code: "invalid_grant"},
			true,
		},
		{
			"invalid_token code",
			&session.ProviderError{Code: "invalid_token"},
			true,
		},
		{
			"refresh_token_not_found code",
			&session.ProviderError{Code: "refresh_token_not_found"},
			true,
		},
		{
			"unauthorized status",
			&session.ProviderError{Status: 401, Code: "some_new_code"},
			true,
		},
		{
			"forbidden status",
			&session.ProviderError{Status: 403},
			true,
		},
		{
			"server error status",
			&session.ProviderError{Status: 500, Code: "unexpected_failure"},
			false,
		},
		{
			"rate limited",
			&session.ProviderError{Status: 429, Code: "over_request_rate_limit"},
			false,
		},
		{
			"plain network error",
			errors.New("dial tcp: connection refused"),
			false,
		},
		{
			"wrapped provider error",
			fmt.Errorf("refresh failed: %w", &session.ProviderError{Code: "invalid_grant"}),
			true,
		},
		{
			"plain error mentioning a critical code",
			errors.New("provider said: invalid_grant"),
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.critical, session.IsCriticalRefreshError(tc.err))
		})
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &session.ProviderError{
		Provider:    "gotrue",
		Operation:   "refresh",
		Status:      400,
		Code:        "invalid_grant",
		Description: "refresh token revoked",
	}
	assert.Equal(t, "gotrue refresh failed: refresh token revoked", err.Error())

	codeOnly := &session.ProviderError{Provider: "gotrue", Code: "invalid_grant"}
	assert.Contains(t, codeOnly.Error(), "invalid_grant")

	wrapped := errors.New("boom")
	withCause := &session.ProviderError{Operation: "refresh", Err: wrapped}
	assert.ErrorIs(t, withCause, wrapped)
}
