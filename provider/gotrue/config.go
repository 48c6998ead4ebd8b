package gotrue

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-session"
)

const (
	defaultTokenPath     = "/token"
	defaultSignupPath    = "/signup"
	defaultLogoutPath    = "/logout"
	defaultAuthorizePath = "/authorize"
)

// Config holds GoTrue-style identity API configuration.
type Config struct {
	// URL is the base URL of the identity API, e.g. https://id.example.com/auth/v1.
	URL string
	// APIKey is sent as the apikey header on every request.
	APIKey string
	// RedirectURL is where OAuth flows land back in the application.
	RedirectURL string
	// JWKSURL enables signature validation of issued access tokens. When
	// empty, tokens are decoded without verification; the provider remains
	// the authority on their validity.
	JWKSURL string

	HTTPClient *http.Client
	Storage    Storage
	Logger     session.Logger
}

func (c Config) baseURL() string {
	return strings.TrimRight(c.URL, "/")
}

// Gateway implements session.ProviderGateway against a GoTrue-style API.
type Gateway struct {
	config     Config
	httpClient *http.Client
	storage    Storage
	logger     session.Logger

	listeners *listenerRegistry
	keys      *keySet
}

// New creates a new Gateway.
func New(cfg Config) *Gateway {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Gateway{
		config:     cfg,
		httpClient: client,
		storage:    storage,
		logger:     logger,
		listeners:  newListenerRegistry(),
		keys:       newKeySet(cfg.JWKSURL),
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
