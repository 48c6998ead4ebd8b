package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goliatone/go-session"
)

var _ session.ProviderGateway = (*Gateway)(nil)

// GetSession implements session.ProviderGateway. It returns the persisted
// session, exchanging the refresh token first when the access token has
// already expired.
func (g *Gateway) GetSession(ctx context.Context) (*session.Session, error) {
	sess, err := g.storage.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	if sess.Expired(time.Now()) {
		if sess.RefreshToken == "" {
			_ = g.storage.Clear()
			return nil, nil
		}
		return g.refresh(ctx, sess.RefreshToken)
	}

	return sess, nil
}

// SignIn implements session.ProviderGateway using the password grant.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	sess, err := g.tokenRequest(ctx, "password", payload)
	if err != nil {
		return nil, err
	}

	if err := g.storage.Save(sess); err != nil {
		g.logger.Warn("failed to persist session: %v", err)
	}
	g.emit(session.EventSignedIn, sess)

	return sess, nil
}

// SignUp implements session.ProviderGateway. The provider sends its own
// verification email; no session is returned.
func (g *Gateway) SignUp(ctx context.Context, email, password string) error {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	body, status, err := g.post(ctx, g.config.baseURL()+defaultSignupPath, "sign_up", payload, "")
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 {
		return parseProviderError("sign_up", status, body)
	}

	return nil
}

// SignInWithOAuth implements session.ProviderGateway. It returns the
// authorization URL the caller must navigate to; the session arrives later
// through the provider callback.
func (g *Gateway) SignInWithOAuth(_ context.Context, provider string) (string, error) {
	if provider == "" {
		return "", &session.ProviderError{
			Provider:    "gotrue",
			Operation:   "authorize",
			Code:        "provider_required",
			Description: "oauth provider name is required",
		}
	}

	params := url.Values{
		"provider": {provider},
	}
	if g.config.RedirectURL != "" {
		params.Set("redirect_to", g.config.RedirectURL)
	}

	return g.config.baseURL() + defaultAuthorizePath + "?" + params.Encode(), nil
}

// SignOut implements session.ProviderGateway. Local persistence is cleared
// even when provider-side revocation fails.
func (g *Gateway) SignOut(ctx context.Context) error {
	sess, _ := g.storage.Load()

	token := ""
	if sess != nil {
		token = sess.AccessToken
	}

	var revokeErr error
	if token != "" {
		body, status, err := g.post(ctx, g.config.baseURL()+defaultLogoutPath, "sign_out", nil, token)
		if err != nil {
			revokeErr = err
		} else if status < 200 || status >= 300 {
			revokeErr = parseProviderError("sign_out", status, body)
		}
	}

	if err := g.storage.Clear(); err != nil {
		g.logger.Warn("failed to clear persisted session: %v", err)
	}
	g.emit(session.EventSignedOut, nil)

	return revokeErr
}

// RefreshSession implements session.ProviderGateway.
func (g *Gateway) RefreshSession(ctx context.Context) (*session.Session, error) {
	sess, err := g.storage.Load()
	if err != nil {
		return nil, err
	}

	if sess == nil || sess.RefreshToken == "" {
		return nil, &session.ProviderError{
			Provider:    "gotrue",
			Operation:   "refresh",
			Code:        "refresh_token_not_found",
			Description: "no refresh token held",
		}
	}

	return g.refresh(ctx, sess.RefreshToken)
}

// OnAuthStateChange implements session.ProviderGateway.
func (g *Gateway) OnAuthStateChange(fn session.AuthEventListener) session.Unsubscribe {
	return g.listeners.add(fn)
}

func (g *Gateway) refresh(ctx context.Context, refreshToken string) (*session.Session, error) {
	payload := map[string]string{
		"refresh_token": refreshToken,
	}

	sess, err := g.tokenRequest(ctx, "refresh_token", payload)
	if err != nil {
		return nil, err
	}

	if err := g.storage.Save(sess); err != nil {
		g.logger.Warn("failed to persist refreshed session: %v", err)
	}
	g.emit(session.EventTokenRefreshed, sess)

	return sess, nil
}

func (g *Gateway) tokenRequest(ctx context.Context, grantType string, payload map[string]string) (*session.Session, error) {
	endpoint := g.config.baseURL() + defaultTokenPath + "?grant_type=" + url.QueryEscape(grantType)

	body, status, err := g.post(ctx, endpoint, grantType, payload, "")
	if err != nil {
		return nil, err
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &session.ProviderError{
			Provider:    "gotrue",
			Operation:   grantType,
			Status:      status,
			Code:        "invalid_response",
			Description: "failed to decode token response",
			Err:         err,
		}
	}

	if status < 200 || status >= 300 || tokenResp.Error != "" {
		return nil, tokenError(grantType, status, &tokenResp, body)
	}

	if tokenResp.AccessToken == "" {
		return nil, &session.ProviderError{
			Provider:    "gotrue",
			Operation:   grantType,
			Status:      status,
			Code:        "missing_access_token",
			Description: "missing access token",
		}
	}

	return tokenResp.toSession(g.keys, time.Now())
}

func (g *Gateway) post(ctx context.Context, endpoint, operation string, payload any, bearer string) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("apikey", g.config.APIKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, &session.ProviderError{
			Provider:  "gotrue",
			Operation: operation,
			Code:      "network_error",
			Err:       err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

func (g *Gateway) emit(eventType session.AuthEventType, sess *session.Session) {
	g.listeners.emit(session.AuthEvent{
		Type:    eventType,
		Raw:     string(eventType),
		Session: sess.Clone(),
	})
}

type listenerRegistry struct {
	mu        sync.Mutex
	listeners map[int]session.AuthEventListener
	next      int
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{
		listeners: map[int]session.AuthEventListener{},
	}
}

func (r *listenerRegistry) add(fn session.AuthEventListener) session.Unsubscribe {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	id := r.next
	r.next++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *listenerRegistry) emit(evt session.AuthEvent) {
	r.mu.Lock()
	fns := make([]session.AuthEventListener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
