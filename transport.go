package session

import (
	"net/http"
)

// SigningTransport is an http.RoundTripper that attaches the currently held
// access token to outgoing requests. The token is read synchronously from
// memory via TokenSource, so signing never blocks on the network.
type SigningTransport struct {
	Base   http.RoundTripper
	Source TokenSource
	Scheme string
}

// NewSigningTransport wraps base with bearer-token signing backed by src.
func NewSigningTransport(src TokenSource, base http.RoundTripper) *SigningTransport {
	return &SigningTransport{
		Base:   base,
		Source: src,
		Scheme: "Bearer",
	}
}

func (t *SigningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := ""
	if t.Source != nil {
		token = t.Source.Token()
	}

	if token == "" {
		return base.RoundTrip(req)
	}

	scheme := t.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}

	// Per http.RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", scheme+" "+token)

	return base.RoundTrip(clone)
}
