package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cartstore"
	"storefront/internal/model"
)

// CartCookie names the cookie carrying the session cart id.
const CartCookie = "storefront_cart"

const cartCookieMaxAge = 30 * 24 * time.Hour

type addItemRequest struct {
	Product  model.Product `json:"product"`
	Variant  model.Variant `json:"variant"`
	Quantity int           `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// cartSessionID returns the caller's session cart id from its cookie.
// Cookies that are not UUIDs are ignored.
func (h *Handler) cartSessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CartCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// ensureCartSession returns the caller's session cart id, issuing a new
// cookie when there is none.
func (h *Handler) ensureCartSession(w http.ResponseWriter, r *http.Request) string {
	if id, ok := h.cartSessionID(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// dispatchCart applies action to the caller's session cart and writes the
// resulting view.
func (h *Handler) dispatchCart(w http.ResponseWriter, r *http.Request, action cartstore.Action) {
	ctx := r.Context()
	sessionID := h.ensureCartSession(w, r)

	state, err := h.carts.Dispatch(ctx, sessionID, action)
	if err != nil {
		if errors.Is(err, cartstore.ErrMissingSKU) || errors.Is(err, cartstore.ErrInvalidQuantity) {
			h.writeError(w, model.NewValidationError("item", err.Error()))
			return
		}
		h.logger.ErrorContext(ctx, "session cart update failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cartstore.NewView(state))
}

// handleSessionCart returns the caller's session cart.
// GET /api/cart
func (h *Handler) handleSessionCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.cartSessionID(r)
	if !ok {
		h.writeJSON(w, http.StatusOK, cartstore.NewView(cartstore.State{}))
		return
	}

	state, err := h.carts.Get(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cartstore.NewView(state))
}

// handleAddSessionItem adds an item to the session cart.
// POST /api/cart/items
func (h *Handler) handleAddSessionItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatchCart(w, r, cartstore.AddItem{Product: req.Product, Variant: req.Variant, Quantity: req.Quantity})
}

// handleUpdateSessionItem sets an item's quantity. Zero removes it.
// PATCH /api/cart/items/{sku}
func (h *Handler) handleUpdateSessionItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatchCart(w, r, cartstore.UpdateQuantity{SKU: r.PathValue("sku"), Quantity: req.Quantity})
}

// handleRemoveSessionItem removes an item from the session cart.
// DELETE /api/cart/items/{sku}
func (h *Handler) handleRemoveSessionItem(w http.ResponseWriter, r *http.Request) {
	h.dispatchCart(w, r, cartstore.RemoveItem{SKU: r.PathValue("sku")})
}

// handleClearSessionCart empties the session cart.
// DELETE /api/cart
func (h *Handler) handleClearSessionCart(w http.ResponseWriter, r *http.Request) {
	h.dispatchCart(w, r, cartstore.Clear{})
}

// POST /api/cart/open
func (h *Handler) handleOpenSessionCart(w http.ResponseWriter, r *http.Request) {
	h.dispatchCart(w, r, cartstore.Open{})
}

// POST /api/cart/close
func (h *Handler) handleCloseSessionCart(w http.ResponseWriter, r *http.Request) {
	h.dispatchCart(w, r, cartstore.Close{})
}
