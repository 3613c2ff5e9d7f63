package commercetools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"storefront/internal/model"
)

// =============================================================================
// COMMERCE BACKEND API CLIENT
// =============================================================================
//
// The commerce backend is a hosted HTTP API scoped by project key:
//   {apiURL}/{projectKey}/carts, /orders, /payments, /customers, ...
//
// Authentication is the OAuth2 client credentials grant against
// {authURL}/oauth/token. The oauth2 transport caches the token and fetches a
// new one when it expires; nothing else is retried.
//
// Every mutable entity carries a version. Updates post {version, actions[]}
// and the backend answers 409 ConcurrentModification when the version is stale.
// =============================================================================

const (
	DefaultAuthURL = "https://auth.commercetools.com"
	DefaultAPIURL  = "https://api.commercetools.com"

	userAgent = "storefront/1.0"
)

// Config holds the credentials and endpoints for the commerce backend.
type Config struct {
	ProjectKey   string
	ClientID     string
	ClientSecret string
	AuthURL      string   // defaults to DefaultAuthURL
	APIURL       string   // defaults to DefaultAPIURL
	Scopes       []string // optional; the API client's default scopes when empty

	// Transport is the base transport for token and API calls.
	// nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Validate reports missing credentials. It never touches the network.
func (c Config) Validate() error {
	var missing []string
	if c.ProjectKey == "" {
		missing = append(missing, "CTP_PROJECT_KEY")
	}
	if c.ClientID == "" {
		missing = append(missing, "CTP_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "CTP_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return model.NewConfigurationError(
			"missing commerce credentials: " + strings.Join(missing, ", "))
	}
	return nil
}

// Client is the commerce backend HTTP client.
// Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string // {apiURL}/{projectKey}
	projectKey string

	// slugLookups collapses concurrent lookups of the same slug and locale.
	slugLookups singleflight.Group
}

// NewClient validates cfg and builds an authenticated client.
// Missing credentials fail here, before any network call.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	authURL := strings.TrimRight(withDefault(cfg.AuthURL, DefaultAuthURL), "/")
	apiURL := strings.TrimRight(withDefault(cfg.APIURL, DefaultAPIURL), "/")

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	base = otelhttp.NewTransport(base)

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     authURL + "/oauth/token",
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	// The token source keeps this context for every refresh, so it must not
	// be request scoped.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   30 * time.Second,
		Transport: base,
	})

	httpClient := creds.Client(tokenCtx)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: httpClient,
		baseURL:    apiURL + "/" + cfg.ProjectKey,
		projectKey: cfg.ProjectKey,
	}, nil
}

// ProjectKey returns the project the client is scoped to.
func (c *Client) ProjectKey() string {
	return c.projectKey
}

// === HTTP Helpers ===

// newRequest builds a JSON request against {baseURL}{path}.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return req, nil
}

// do executes the request and decodes the response.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return model.NewUnauthorizedError("commerce backend rejected client credentials")
		}
		return model.NewUpstreamError("commercetools", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}

// update posts {version, actions} to an entity endpoint and decodes the result.
func (c *Client) update(ctx context.Context, path string, version int64, actions []UpdateAction, result interface{}) error {
	body := &UpdateRequest{Version: version, Actions: actions}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return fmt.Errorf("creating update request: %w", err)
	}
	return c.do(req, result)
}

// parseError converts backend error responses to model.APIError.
// The backend's error codes stay reachable through errors.As on *BackendError.
func parseError(statusCode int, body []byte) error {
	var ctErr BackendError
	json.Unmarshal(body, &ctErr) // Best effort parse
	ctErr.StatusCode = statusCode

	msg := ctErr.Message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return model.NewUnauthorizedError("commerce backend authentication failed")
	case http.StatusForbidden:
		return model.NewUnauthorizedError("commerce backend access denied")
	case http.StatusNotFound:
		e := model.NewNotFoundError("resource")
		e.Err = fmt.Errorf("%w: %w", model.ErrNotFound, &ctErr)
		return e
	case http.StatusConflict:
		e := model.NewConflictError("resource", msg)
		e.Err = fmt.Errorf("%w: %w", model.ErrVersionConflict, &ctErr)
		return e
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("commercetools")
	case http.StatusBadRequest:
		e := model.NewValidationError("request", msg)
		e.Err = fmt.Errorf("%w: %w", model.ErrInvalidRequest, &ctErr)
		return e
	default:
		return model.NewUpstreamError("commercetools", &ctErr)
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
