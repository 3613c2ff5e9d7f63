// Package checkout orchestrates the storefront's purchase flows across the
// commerce backend and the payment processor.
//
// Flows are sequential chains of backend mutations, each using the version
// returned by the previous one. Nothing is rolled back: a failure midway
// leaves an orphaned cart that expires on the backend.
package checkout

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/payments"
)

const defaultSiteURL = "http://localhost:3000"

// countryNames renders allow-list entries in customer-facing messages.
var countryNames = map[string]string{"US": "United States"}

// Config holds checkout settings.
type Config struct {
	SiteURL          string
	AllowedCountries []string // shipping allow-list, defaults to US
	DefaultCurrency  string   // defaults to USD
	DefaultCountry   string   // defaults to US

	// SessionPresence reports which hosted checkout settings are set.
	// Served as the error details when hosted sessions are unavailable.
	SessionPresence map[string]bool
}

// Service runs the checkout flows. sessions and processor may be nil when
// their configuration is incomplete; the flows that need them then fail
// with a configuration error.
type Service struct {
	commerce  adapter.Commerce
	processor adapter.Processor
	sessions  adapter.HostedSessions
	ledger    payments.Ledger
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a checkout service.
func NewService(commerce adapter.Commerce, processor adapter.Processor, sessions adapter.HostedSessions, ledger payments.Ledger, cfg Config, logger *slog.Logger) *Service {
	if len(cfg.AllowedCountries) == 0 {
		cfg.AllowedCountries = []string{"US"}
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = "US"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = defaultSiteURL
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if ledger == nil {
		ledger = payments.NewMemoryLedger()
	}
	return &Service{
		commerce:  commerce,
		processor: processor,
		sessions:  sessions,
		ledger:    ledger,
		cfg:       cfg,
		logger:    logger,
	}
}

// Error is a checkout failure in the storefront's flat error shape:
// {"error": Title, "message": Message, "details": Details}.
type Error struct {
	Status  int
	Title   string
	Message string
	Details map[string]bool
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Title + ": " + e.Message
	}
	return e.Title
}

func (e *Error) Unwrap() error {
	return e.Err
}

func badRequest(title, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Title: title, Message: message, Err: model.ErrInvalidRequest}
}

// failed wraps an upstream failure as a 500 with the cause as message.
// Version conflicts keep their 409.
func failed(title string, err error) *Error {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrVersionConflict) {
		status = http.StatusConflict
	}
	return &Error{Status: status, Title: title, Message: err.Error(), Err: err}
}

var errInvalidItems = badRequest("Invalid cart items", "")

// lineItemDraft builds the backend draft for a storefront cart item: by SKU
// when it has one, otherwise by product id and variant id.
func lineItemDraft(item model.CartItem) (model.LineItemDraft, error) {
	if item.Quantity <= 0 {
		return model.LineItemDraft{}, fmt.Errorf("invalid quantity for item: %s", item.Product.Slug)
	}
	if sku := strings.TrimSpace(item.VariantSKU); sku != "" {
		return model.LineItemDraft{SKU: sku, Quantity: item.Quantity}, nil
	}
	productID := item.ProductID
	if productID == "" {
		productID = item.Product.CommercetoolsID
	}
	if productID == "" || item.Variant.VariantID <= 0 {
		return model.LineItemDraft{}, fmt.Errorf("Product ID missing for item: %s", item.Product.Slug)
	}
	return model.LineItemDraft{ProductID: productID, VariantID: item.Variant.VariantID, Quantity: item.Quantity}, nil
}

func lineItemDrafts(items []model.CartItem) ([]model.LineItemDraft, error) {
	drafts := make([]model.LineItemDraft, 0, len(items))
	for _, item := range items {
		d, err := lineItemDraft(item)
		if err != nil {
			return nil, badRequest("Invalid cart items", err.Error())
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (s *Service) allowedCountry(country string) bool {
	for _, c := range s.cfg.AllowedCountries {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

func (s *Service) allowedCountriesText() string {
	names := make([]string, len(s.cfg.AllowedCountries))
	for i, c := range s.cfg.AllowedCountries {
		if name, ok := countryNames[c]; ok {
			names[i] = name
		} else {
			names[i] = c
		}
	}
	return strings.Join(names, ", ")
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
