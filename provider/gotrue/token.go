package gotrue

import (
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-session"
)

// tokenResponse is the body of a successful /token or /signup call.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`

	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	Code      string `json:"error_code"`
	Msg       string `json:"msg"`
}

// toSession maps a token response onto a Session, falling back to the access
// token's own claims for fields the response omits.
func (r *tokenResponse) toSession(keys *keySet, now time.Time) (*session.Session, error) {
	claims, err := keys.decode(r.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		UserID:       r.User.ID,
		Email:        r.User.Email,
	}

	if sess.ExpiresAt == 0 && r.ExpiresIn > 0 {
		sess.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).Unix()
	}
	if sess.ExpiresAt == 0 {
		sess.ExpiresAt = claims.expiresAt
	}
	if sess.UserID == "" {
		sess.UserID = claims.subject
	}
	if sess.Email == "" {
		sess.Email = claims.email
	}

	return sess, nil
}

type tokenClaims struct {
	subject   string
	email     string
	expiresAt int64
}

// keySet decodes access tokens, validating signatures against the provider
// JWKS when configured.
type keySet struct {
	jwksURL string

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

func newKeySet(jwksURL string) *keySet {
	return &keySet{jwksURL: jwksURL}
}

func (k *keySet) decode(raw string) (*tokenClaims, error) {
	claims := jwt.MapClaims{}

	if k.jwksURL == "" {
		// The provider remains the authority on token validity; we only need
		// the claims to shape the session.
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
			return nil, &session.ProviderError{
				Provider:    "gotrue",
				Operation:   "decode_token",
				Code:        "invalid_token",
				Description: "failed to decode access token",
				Err:         err,
			}
		}
		return mapTokenClaims(claims), nil
	}

	kf, err := k.keyfunc()
	if err != nil {
		return nil, err
	}

	if _, err := jwt.ParseWithClaims(raw, claims, kf); err != nil {
		return nil, &session.ProviderError{
			Provider:    "gotrue",
			Operation:   "validate_token",
			Code:        "invalid_token",
			Description: "access token failed JWKS validation",
			Err:         err,
		}
	}

	return mapTokenClaims(claims), nil
}

func (k *keySet) keyfunc() (jwt.Keyfunc, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.jwks == nil {
		jwks, err := keyfunc.Get(k.jwksURL, keyfunc.Options{})
		if err != nil {
			return nil, &session.ProviderError{
				Provider:    "gotrue",
				Operation:   "jwks",
				Code:        "jwks_unreachable",
				Description: "failed to fetch JWK set",
				Err:         err,
			}
		}
		k.jwks = jwks
	}

	return k.jwks.Keyfunc, nil
}

func mapTokenClaims(claims jwt.MapClaims) *tokenClaims {
	out := &tokenClaims{}

	if sub, err := claims.GetSubject(); err == nil {
		out.subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.expiresAt = exp.Unix()
	}
	if email, ok := claims["email"].(string); ok {
		out.email = email
	}

	return out
}
