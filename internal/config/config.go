// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const (
	defaultAuthURL = "https://auth.commercetools.com"
	defaultAPIURL  = "https://api.commercetools.com"
	defaultSiteURL = "http://localhost:3000"
)

// TLSProfileChrome selects the Chrome-fingerprint upstream transport.
const TLSProfileChrome = "chrome"

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string `json:"port"`
	Environment string `json:"environment"` // "development" or "production"
	LogLevel    string `json:"log_level"`   // "debug", "info", "warn", "error"
	SiteURL     string `json:"site_url"`

	// GCP settings (required in production)
	GCPProject string `json:"gcp_project"`
	SecretName string `json:"secret_name"`

	// RedisURL enables Redis-backed session carts and the webhook ledger.
	// Empty keeps both in memory.
	RedisURL string `json:"redis_url"`

	// UpstreamTLSProfile is "chrome" or empty.
	UpstreamTLSProfile string `json:"upstream_tls_profile"`

	// AllowedCountries is the shipping allow-list (ISO 3166-1 alpha-2).
	AllowedCountries []string `json:"allowed_shipping_countries"`

	// Secrets are loaded from Secret Manager in production.
	Secrets Secrets `json:"secrets"`
}

// Secrets contains the upstream credentials.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type Secrets struct {
	Commerce CommerceConfig `json:"commerce"`
	Checkout CheckoutConfig `json:"checkout"`
	Stripe   StripeConfig   `json:"stripe"`
	CMS      CMSConfig      `json:"cms"`
}

// CommerceConfig is the commerce API client.
type CommerceConfig struct {
	ProjectKey   string   `json:"project_key"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	APIURL       string   `json:"api_url"`
	Scopes       []string `json:"scopes,omitempty"`
}

// CheckoutConfig is the hosted checkout session client. All five values
// must be set for hosted sessions; partial settings are reported per request.
type CheckoutConfig struct {
	Region         string `json:"region"`
	ApplicationKey string `json:"application_key"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
}

// StripeConfig holds the payment processor keys.
type StripeConfig struct {
	SecretKey     string `json:"secret_key"`
	WebhookSecret string `json:"webhook_secret"`
}

// Enabled reports whether the processor can be constructed.
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// CMSConfig is the content delivery client.
type CMSConfig struct {
	GUID          string `json:"guid"`
	FetchKey      string `json:"fetch_key"`
	PreviewKey    string `json:"preview_key"`
	Preview       bool   `json:"preview"`
	DefaultLocale string `json:"default_locale"`
	Sitemap       string `json:"sitemap"`
}

// Enabled reports whether the content routes can be served.
func (c CMSConfig) Enabled() bool {
	if c.GUID == "" {
		return false
	}
	if c.Preview {
		return c.PreviewKey != ""
	}
	return c.FetchKey != ""
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:               envOrDefault("PORT", "8080"),
		Environment:        envOrDefault("ENVIRONMENT", "development"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		SiteURL:            envOrDefault("SITE_URL", defaultSiteURL),
		GCPProject:         os.Getenv("GCP_PROJECT"),
		SecretName:         envOrDefault("SECRET_NAME", "storefront"),
		RedisURL:           os.Getenv("REDIS_URL"),
		UpstreamTLSProfile: os.Getenv("UPSTREAM_TLS_PROFILE"),
		AllowedCountries:   splitList(envOrDefault("ALLOWED_SHIPPING_COUNTRIES", "US")),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromSecretManager fetches the secret bundle from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_name}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Secrets); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads the secrets from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Secrets = Secrets{
		Commerce: CommerceConfig{
			ProjectKey:   os.Getenv("CTP_PROJECT_KEY"),
			ClientID:     os.Getenv("CTP_CLIENT_ID"),
			ClientSecret: os.Getenv("CTP_CLIENT_SECRET"),
			AuthURL:      os.Getenv("CTP_AUTH_URL"),
			APIURL:       os.Getenv("CTP_API_URL"),
			Scopes:       strings.Fields(os.Getenv("CTP_SCOPES")),
		},
		Checkout: CheckoutConfig{
			Region:         os.Getenv("CTP_CHECKOUT_REGION"),
			ApplicationKey: os.Getenv("CTP_CHECKOUT_APPLICATION_KEY"),
			ClientID:       os.Getenv("CTP_CHECKOUT_SESSION_CLIENT_ID"),
			ClientSecret:   os.Getenv("CTP_CHECKOUT_SESSION_CLIENT_SECRET"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		CMS: CMSConfig{
			GUID:          os.Getenv("AGILITY_GUID"),
			FetchKey:      os.Getenv("AGILITY_API_FETCH_KEY"),
			PreviewKey:    os.Getenv("AGILITY_API_PREVIEW_KEY"),
			DefaultLocale: os.Getenv("AGILITY_DEFAULT_LOCALE"),
			Sitemap:       os.Getenv("AGILITY_SITEMAP"),
		},
	}

	if v := os.Getenv("AGILITY_PREVIEW"); v != "" {
		preview, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing AGILITY_PREVIEW: %w", err)
		}
		c.Secrets.CMS.Preview = preview
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Port = withDefault(c.Port, "8080")
	c.Environment = withDefault(c.Environment, "development")
	c.LogLevel = withDefault(c.LogLevel, "info")
	c.SiteURL = strings.TrimSuffix(withDefault(c.SiteURL, defaultSiteURL), "/")
	if len(c.AllowedCountries) == 0 {
		c.AllowedCountries = []string{"US"}
	}
	for i, cc := range c.AllowedCountries {
		c.AllowedCountries[i] = strings.ToUpper(strings.TrimSpace(cc))
	}

	cm := &c.Secrets.Commerce
	cm.AuthURL = strings.TrimSuffix(withDefault(cm.AuthURL, defaultAuthURL), "/")
	cm.APIURL = strings.TrimSuffix(withDefault(cm.APIURL, defaultAPIURL), "/")

	cms := &c.Secrets.CMS
	cms.DefaultLocale = withDefault(cms.DefaultLocale, "en-us")
	cms.Sitemap = withDefault(cms.Sitemap, "website")
}

// validate checks that all required configuration fields are present.
// Hosted checkout settings are not required here; missing ones are
// reported when a hosted session is requested.
func (c *Config) validate() error {
	cm := c.Secrets.Commerce
	if cm.ProjectKey == "" {
		return fmt.Errorf("commerce project_key is required")
	}
	if cm.ClientID == "" {
		return fmt.Errorf("commerce client_id is required")
	}
	if cm.ClientSecret == "" {
		return fmt.Errorf("commerce client_secret is required")
	}

	for name, raw := range map[string]string{
		"site_url": c.SiteURL,
		"auth_url": cm.AuthURL,
		"api_url":  cm.APIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}

	if c.Secrets.Stripe.Enabled() && c.Secrets.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook_secret is required when secret_key is set")
	}

	switch c.UpstreamTLSProfile {
	case "", TLSProfileChrome:
	default:
		return fmt.Errorf("unknown upstream_tls_profile %q", c.UpstreamTLSProfile)
	}

	for _, cc := range c.AllowedCountries {
		if len(cc) != 2 {
			return fmt.Errorf("invalid shipping country %q", cc)
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
