// Package backend is a thin client for the application backend's
// current-user endpoint, used by explicit profile refreshes.
package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-session"
)

const defaultCurrentUserPath = "/v1/me"

// Config holds backend API configuration.
type Config struct {
	// URL is the backend base URL.
	URL string
	// CurrentUserPath overrides the current-user endpoint path.
	CurrentUserPath string

	HTTPClient *http.Client
}

// Client implements session.BackendAPI.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ session.BackendAPI = (*Client)(nil)

// New creates a new backend client.
func New(cfg Config) *Client {
	if cfg.CurrentUserPath == "" {
		cfg.CurrentUserPath = defaultCurrentUserPath
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

type currentUserResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
	Plan    string `json:"plan"`
}

// GetCurrentUser implements session.BackendAPI.
func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (*session.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL+c.config.CurrentUserPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &session.ProviderError{
			Provider:    "backend",
			Operation:   "current_user",
			Status:      resp.StatusCode,
			Description: "failed to fetch current user",
		}
	}

	var payload currentUserResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &session.ProviderError{
			Provider:    "backend",
			Operation:   "current_user",
			Status:      resp.StatusCode,
			Code:        "invalid_response",
			Description: "failed to decode current user response",
			Err:         err,
		}
	}

	plan := payload.Plan
	if plan == "" {
		plan = session.PlanFree
	}

	return &session.UserProfile{
		UserID:  payload.UserID,
		Email:   payload.Email,
		Credits: payload.Credits,
		Plan:    plan,
		Stage:   session.StageResolved,
	}, nil
}
