package handler

import (
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

type lineItemsRequest struct {
	Version int64                 `json:"version"`
	Items   []model.LineItemDraft `json:"items"`
}

type shippingAddressRequest struct {
	Version int64          `json:"version"`
	Address *model.Address `json:"address"`
}

type shippingMethodRequest struct {
	Version  int64  `json:"version"`
	MethodID string `json:"methodId"`
}

// handleGetCart returns a backend cart.
// GET /api/carts/{id}
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.checkout.GetCart(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}

// handleReplaceLineItems makes the cart's lines equal the posted items.
// PUT /api/carts/{id}/line-items
func (h *Handler) handleReplaceLineItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := r.PathValue("id")

	var req lineItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "replacing cart line items",
		slog.String("cart_id", cartID),
		slog.Int64("version", req.Version),
		slog.Int("items", len(req.Items)),
	)

	cart, err := h.checkout.ReplaceLineItems(ctx, cartID, req.Version, req.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}

// handleSetShippingAddress sets the cart's shipping address.
// PUT /api/carts/{id}/shipping-address
func (h *Handler) handleSetShippingAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shippingAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Address == nil {
		h.writeError(w, model.NewValidationError("address", "required"))
		return
	}

	cart, err := h.checkout.SetShippingAddress(ctx, r.PathValue("id"), req.Version, *req.Address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}

// handleShippingMethods lists the shipping methods for the cart.
// GET /api/carts/{id}/shipping-methods
func (h *Handler) handleShippingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.checkout.ShippingMethods(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]model.ShippingMethod{"shippingMethods": methods})
}

// handleSetShippingMethod selects the cart's shipping method.
// PUT /api/carts/{id}/shipping-method
func (h *Handler) handleSetShippingMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req shippingMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	cart, err := h.checkout.SetShippingMethod(ctx, r.PathValue("id"), req.Version, req.MethodID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}
