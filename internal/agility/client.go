// Package agility is a client for the Agility CMS Content Fetch REST API.
package agility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/model"
)

// =============================================================================
// CONTENT FETCH API CLIENT
// =============================================================================
//
// Every call is a GET scoped by instance GUID, API type and locale:
//   {baseURL}/{guid}/{fetch|preview}/{locale}/list/{referenceName}
//   {baseURL}/{guid}/{fetch|preview}/{locale}/item/{contentID}
//   {baseURL}/{guid}/{fetch|preview}/{locale}/sitemap/flat/{channel}
//   {baseURL}/{guid}/{fetch|preview}/{locale}/page/{pageID}
//
// The API key travels in the APIKey header. Preview mode uses the preview key
// and returns unpublished content.
// =============================================================================

const userAgent = "storefront/1.0"

// Config holds the CMS instance credentials.
type Config struct {
	GUID       string
	FetchKey   string
	PreviewKey string
	Preview    bool

	// BaseURL overrides the region host derived from the GUID.
	BaseURL string

	// Transport is the base transport. nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client fetches content from one CMS instance.
type Client struct {
	httpClient *http.Client
	baseURL    string // {host}/{guid}/{fetch|preview}
	apiKey     string
	preview    bool
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.GUID == "" {
		return nil, model.NewConfigurationError("missing AGILITY_GUID")
	}

	apiType, key := "fetch", cfg.FetchKey
	if cfg.Preview {
		apiType, key = "preview", cfg.PreviewKey
	}
	if key == "" {
		return nil, model.NewConfigurationError("missing Agility API key for " + apiType + " mode")
	}

	host := cfg.BaseURL
	if host == "" {
		host = RegionHost(cfg.GUID)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(base),
		},
		baseURL: strings.TrimRight(host, "/") + "/" + cfg.GUID + "/" + apiType,
		apiKey:  key,
		preview: cfg.Preview,
	}, nil
}

// RegionHost picks the API host from the GUID's region suffix.
func RegionHost(guid string) string {
	switch {
	case strings.HasSuffix(guid, "-d"):
		return "https://api-dev.aglty.io"
	case strings.HasSuffix(guid, "-u"):
		return "https://api-usa.aglty.io"
	case strings.HasSuffix(guid, "-c"):
		return "https://api-ca.aglty.io"
	case strings.HasSuffix(guid, "-e"):
		return "https://api-eu.aglty.io"
	case strings.HasSuffix(guid, "-a"):
		return "https://api-aus.aglty.io"
	default:
		return "https://api.aglty.io"
	}
}

// Preview reports whether the client reads unpublished content.
func (c *Client) Preview() bool {
	return c.preview
}

// === Content ===

// GetContentList fetches one page of a content list.
func (c *Client) GetContentList(ctx context.Context, q ListQuery) (*ContentList, error) {
	if q.ReferenceName == "" {
		return nil, model.NewValidationError("referenceName", "required")
	}

	params := url.Values{}
	if q.Take > 0 {
		params.Set("take", strconv.Itoa(q.Take))
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
		if q.Direction != "" {
			params.Set("direction", q.Direction)
		}
	}
	params.Set("contentLinkDepth", strconv.Itoa(q.ContentLinkDepth))

	var list ContentList
	path := "/list/" + url.PathEscape(strings.ToLower(q.ReferenceName))
	if err := c.get(ctx, q.Locale, path, params, &list); err != nil {
		return nil, fmt.Errorf("fetching content list %s: %w", q.ReferenceName, err)
	}
	return &list, nil
}

// GetContentItem fetches a single content item.
func (c *Client) GetContentItem(ctx context.Context, contentID int, locale string) (*ContentItem, error) {
	var item ContentItem
	params := url.Values{"contentLinkDepth": {"1"}}
	if err := c.get(ctx, locale, "/item/"+strconv.Itoa(contentID), params, &item); err != nil {
		return nil, fmt.Errorf("fetching content item %d: %w", contentID, err)
	}
	return &item, nil
}

// GetSitemapFlat fetches the flat sitemap keyed by page path.
func (c *Client) GetSitemapFlat(ctx context.Context, channel, locale string) (Sitemap, error) {
	var sitemap Sitemap
	if err := c.get(ctx, locale, "/sitemap/flat/"+url.PathEscape(channel), nil, &sitemap); err != nil {
		return nil, fmt.Errorf("fetching sitemap %s: %w", channel, err)
	}
	return sitemap, nil
}

// GetPage fetches a page with its zones. Module items are left unexpanded.
func (c *Client) GetPage(ctx context.Context, pageID int, locale string) (*Page, error) {
	var page Page
	params := url.Values{"contentLinkDepth": {"0"}}
	if err := c.get(ctx, locale, "/page/"+strconv.Itoa(pageID), params, &page); err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", pageID, err)
	}
	return &page, nil
}

// === HTTP Helpers ===

func (c *Client) get(ctx context.Context, locale, path string, query url.Values, result interface{}) error {
	if locale == "" {
		return model.NewValidationError("locale", "required")
	}

	u := c.baseURL + "/" + url.PathEscape(strings.ToLower(locale)) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("APIKey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("agility", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func parseError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewUnauthorizedError("CMS rejected the API key")
	case http.StatusNotFound:
		return model.NewNotFoundError("content")
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("agility")
	default:
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return model.NewUpstreamError("agility", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}
