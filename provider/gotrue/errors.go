package gotrue

import (
	"encoding/json"

	"github.com/goliatone/go-session"
)

// providerErrorBody covers the error envelopes GoTrue-style APIs return:
// OAuth-shaped {error, error_description} and legacy {code, msg}.
type providerErrorBody struct {
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	ErrorCode string `json:"error_code"`
	Code      any    `json:"code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
}

func parseProviderError(operation string, status int, body []byte) *session.ProviderError {
	parsed := providerErrorBody{}
	raw := map[string]any{}

	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
		_ = json.Unmarshal(body, &raw)
	}

	code := parsed.Error
	if code == "" {
		code = parsed.ErrorCode
	}
	if code == "" {
		if s, ok := parsed.Code.(string); ok {
			code = s
		}
	}

	description := parsed.ErrorDesc
	if description == "" {
		description = parsed.Msg
	}
	if description == "" {
		description = parsed.Message
	}

	return &session.ProviderError{
		Provider:    "gotrue",
		Operation:   operation,
		Status:      status,
		Code:        code,
		Description: description,
		Raw:         raw,
	}
}

func tokenError(operation string, status int, resp *tokenResponse, body []byte) *session.ProviderError {
	if resp.Error != "" || resp.Code != "" || resp.Msg != "" {
		code := resp.Error
		if code == "" {
			code = resp.Code
		}
		description := resp.ErrorDesc
		if description == "" {
			description = resp.Msg
		}
		return &session.ProviderError{
			Provider:    "gotrue",
			Operation:   operation,
			Status:      status,
			Code:        code,
			Description: description,
		}
	}

	return parseProviderError(operation, status, body)
}
