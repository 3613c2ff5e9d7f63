package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"storefront/internal/model"
)

// =============================================================================
// HOSTED CHECKOUT SESSIONS
// =============================================================================
//
// The backend's hosted checkout runs on a separate regional host and uses a
// dedicated API client limited to manage_sessions:{projectKey}:
//
//   POST {authURL}/oauth/token            (Basic auth, client_credentials)
//   POST https://session.{region}.commercetools.com/{projectKey}/sessions
//
// The session references an existing cart; the hosted UI collects the full
// address, payment and creates the order itself.
// =============================================================================

// SessionConfig holds the five hosted checkout settings plus endpoints.
type SessionConfig struct {
	ProjectKey     string
	Region         string
	ApplicationKey string
	ClientID       string
	ClientSecret   string

	AuthURL string // defaults to DefaultAuthURL

	// SessionURL overrides https://session.{region}.commercetools.com.
	SessionURL string

	Transport http.RoundTripper
}

// Presence reports which of the five required settings are set.
func (c SessionConfig) Presence() map[string]bool {
	return map[string]bool{
		"projectKey":          c.ProjectKey != "",
		"region":              c.Region != "",
		"applicationKey":      c.ApplicationKey != "",
		"sessionClientId":     c.ClientID != "",
		"sessionClientSecret": c.ClientSecret != "",
	}
}

// Complete reports whether every required setting is present.
func (c SessionConfig) Complete() bool {
	for _, ok := range c.Presence() {
		if !ok {
			return false
		}
	}
	return true
}

// HostedSession is a created checkout session.
type HostedSession struct {
	ID string `json:"id"`
}

type sessionDraft struct {
	Cart     sessionCart     `json:"cart"`
	Metadata sessionMetadata `json:"metadata"`
}

type sessionCart struct {
	CartRef ResourceID `json:"cartRef"`
}

// ResourceID is a reference by id only.
type ResourceID struct {
	ID string `json:"id"`
}

type sessionMetadata struct {
	ApplicationKey string `json:"applicationKey"`
}

// SessionClient creates hosted checkout sessions.
type SessionClient struct {
	cfg        SessionConfig
	httpClient *http.Client
	sessionURL string
}

// NewSessionClient builds a client for complete configurations only.
func NewSessionClient(cfg SessionConfig) (*SessionClient, error) {
	if !cfg.Complete() {
		return nil, model.NewConfigurationError("Missing required commercetools Checkout configuration")
	}

	authURL := strings.TrimRight(withDefault(cfg.AuthURL, DefaultAuthURL), "/")
	sessionURL := cfg.SessionURL
	if sessionURL == "" {
		sessionURL = fmt.Sprintf("https://session.%s.commercetools.com", cfg.Region)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	base = otelhttp.NewTransport(base)

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     authURL + "/oauth/token",
		Scopes:       []string{"manage_sessions:" + cfg.ProjectKey},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   30 * time.Second,
		Transport: base,
	})

	httpClient := creds.Client(tokenCtx)
	httpClient.Timeout = 30 * time.Second

	return &SessionClient{
		cfg:        cfg,
		httpClient: httpClient,
		sessionURL: strings.TrimRight(sessionURL, "/"),
	}, nil
}

// Region returns the configured checkout region.
func (s *SessionClient) Region() string { return s.cfg.Region }

// ProjectKey returns the configured project key.
func (s *SessionClient) ProjectKey() string { return s.cfg.ProjectKey }

// CreateSession opens a hosted checkout session for the cart.
func (s *SessionClient) CreateSession(ctx context.Context, cartID string) (*HostedSession, error) {
	body := &sessionDraft{
		Cart:     sessionCart{CartRef: ResourceID{ID: cartID}},
		Metadata: sessionMetadata{ApplicationKey: s.cfg.ApplicationKey},
	}

	// Reuse the API client's request helpers against the session host.
	api := &Client{httpClient: s.httpClient, baseURL: s.sessionURL + "/" + s.cfg.ProjectKey}

	req, err := api.newRequest(ctx, http.MethodPost, "/sessions", nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session request: %w", err)
	}

	var session HostedSession
	if err := api.do(req, &session); err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	if session.ID == "" {
		return nil, model.NewUpstreamError("commercetools checkout", fmt.Errorf("empty session id"))
	}
	return &session, nil
}
