package handler

import (
	"io"
	"log/slog"
	"net/http"

	"storefront/internal/checkout"
	"storefront/internal/model"
)

var errInvalidBody = &checkout.Error{Status: http.StatusBadRequest, Title: "Invalid request body", Err: model.ErrInvalidRequest}

// handlePlaceOrder creates an order directly from the posted items.
// POST /api/checkout
func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkout.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeCheckoutError(w, r, errInvalidBody)
		return
	}

	h.logger.InfoContext(ctx, "placing order",
		slog.Int("items", len(req.Items)),
		slog.Bool("has_customer", req.CustomerID != ""),
	)

	res, err := h.checkout.PlaceOrder(ctx, req, r.Header.Get("Origin"))
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// handleCreateHostedSession opens a backend-hosted checkout session.
// POST /api/checkout/session/create
func (h *Handler) handleCreateHostedSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkout.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeCheckoutError(w, r, errInvalidBody)
		return
	}

	h.logger.InfoContext(ctx, "creating hosted checkout session",
		slog.Int("items", len(req.Items)),
	)

	res, err := h.checkout.CreateHostedSession(ctx, req)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// handleCreateStripeSession opens a processor checkout session.
// POST /api/checkout/stripe-session
func (h *Handler) handleCreateStripeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkout.StripeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeCheckoutError(w, r, errInvalidBody)
		return
	}

	h.logger.InfoContext(ctx, "creating checkout session",
		slog.Int("items", len(req.Items)),
		slog.Bool("has_shipping", req.ShippingAddress != nil),
		slog.Bool("has_customer", req.CustomerID != ""),
	)

	res, err := h.checkout.CreateStripeSession(ctx, req)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// handleLookupOrder reports the order behind a processor session or order id.
// A paid session clears the caller's session cart.
// GET /api/checkout/session?session_id=&order_id=
func (h *Handler) handleLookupOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	res, err := h.checkout.LookupOrder(ctx, q.Get("session_id"), q.Get("order_id"))
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	if res.Paid {
		if sessionID, ok := h.cartSessionID(r); ok {
			if err := h.carts.Reset(ctx, sessionID); err != nil {
				h.logger.WarnContext(ctx, "clearing session cart failed", slog.String("error", err.Error()))
			}
		}
	}

	if res.Order != nil {
		h.writeJSON(w, http.StatusOK, res.Order)
		return
	}
	h.writeJSON(w, http.StatusOK, res.Session)
}

// handleStripeWebhook verifies and processes a processor webhook.
// POST /api/webhooks/stripe
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		h.writeCheckoutError(w, r, errInvalidBody)
		return
	}

	if err := h.checkout.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// handleRegisterCustomer creates a customer account, or returns the
// existing guest record for the email.
// POST /api/customers
func (h *Handler) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var draft model.CustomerDraft
	if err := decodeJSON(r, &draft); err != nil {
		h.writeError(w, err)
		return
	}

	customer, err := h.checkout.RegisterCustomer(ctx, draft)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "customer registered",
		slog.String("customer_id", customer.ID),
		slog.Bool("with_password", draft.Password != ""),
	)
	h.writeJSON(w, http.StatusCreated, customer)
}
