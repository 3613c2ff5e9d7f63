// Package handler provides the storefront's HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/adapter"
	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/content"
	"storefront/internal/model"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	checkout *checkout.Service
	catalog  adapter.Catalog
	carts    *cartstore.Store
	content  *content.Service
	logger   *slog.Logger

	// secureCookies marks the session cart cookie Secure.
	secureCookies bool
}

// Options are optional handler settings.
type Options struct {
	SecureCookies bool
}

// New creates a Handler. content may be nil when no CMS is configured; the
// content routes then answer 503.
func New(co *checkout.Service, catalog adapter.Catalog, carts *cartstore.Store, ct *content.Service, opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		checkout:      co,
		catalog:       catalog,
		carts:         carts,
		content:       ct,
		logger:        logger,
		secureCookies: opts.SecureCookies,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Checkout flows
	mux.HandleFunc("POST /api/checkout", h.handlePlaceOrder)
	mux.HandleFunc("POST /api/checkout/session/create", h.handleCreateHostedSession)
	mux.HandleFunc("POST /api/checkout/stripe-session", h.handleCreateStripeSession)
	mux.HandleFunc("GET /api/checkout/session", h.handleLookupOrder)
	mux.HandleFunc("POST /api/webhooks/stripe", h.handleStripeWebhook)
	mux.HandleFunc("POST /api/customers", h.handleRegisterCustomer)

	// Catalog
	mux.HandleFunc("GET /api/products", h.handleListProducts)
	mux.HandleFunc("GET /api/products/{slug}", h.handleGetProduct)

	// Backend carts
	mux.HandleFunc("GET /api/carts/{id}", h.handleGetCart)
	mux.HandleFunc("PUT /api/carts/{id}/line-items", h.handleReplaceLineItems)
	mux.HandleFunc("PUT /api/carts/{id}/shipping-address", h.handleSetShippingAddress)
	mux.HandleFunc("GET /api/carts/{id}/shipping-methods", h.handleShippingMethods)
	mux.HandleFunc("PUT /api/carts/{id}/shipping-method", h.handleSetShippingMethod)

	// Session cart
	mux.HandleFunc("GET /api/cart", h.handleSessionCart)
	mux.HandleFunc("DELETE /api/cart", h.handleClearSessionCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddSessionItem)
	mux.HandleFunc("PATCH /api/cart/items/{sku}", h.handleUpdateSessionItem)
	mux.HandleFunc("DELETE /api/cart/items/{sku}", h.handleRemoveSessionItem)
	mux.HandleFunc("POST /api/cart/open", h.handleOpenSessionCart)
	mux.HandleFunc("POST /api/cart/close", h.handleCloseSessionCart)

	// CMS content
	mux.HandleFunc("GET /api/pages/{path...}", h.handlePage)
	mux.HandleFunc("GET /api/posts", h.handlePosts)
	mux.HandleFunc("GET /api/featured-products/{contentID}", h.handleFeaturedProducts)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// checkoutErrorResponse is the flat error body of the checkout routes.
type checkoutErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Details map[string]bool `json:"details,omitempty"`
}

// writeCheckoutError sends the flat {error, message} body used by the
// checkout routes. Errors that are not checkout errors become a 500 with the
// raw cause as message.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *checkout.Error
	if !errors.As(err, &cerr) {
		cerr = &checkout.Error{Status: http.StatusInternalServerError, Title: "Internal server error", Message: err.Error()}
	}

	if cerr.Status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "checkout request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	h.writeJSON(w, cerr.Status, checkoutErrorResponse{
		Error:   cerr.Title,
		Message: cerr.Message,
		Details: cerr.Details,
	})
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
