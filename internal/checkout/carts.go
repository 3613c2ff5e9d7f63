package checkout

import (
	"context"
	"log/slog"

	"storefront/internal/model"
	"storefront/internal/reconcile"
)

// Cart management wraps backend carts for headless clients. Errors are
// returned as-is so handlers can map the model error codes.

// GetCart returns the backend cart.
func (s *Service) GetCart(ctx context.Context, cartID string) (*model.Cart, error) {
	return s.commerce.GetCart(ctx, cartID)
}

// ReplaceLineItems makes the cart's lines equal items. The supplied version
// must be the cart's current one. Mutations are applied remove, update, add,
// each with the version returned by the previous mutation.
func (s *Service) ReplaceLineItems(ctx context.Context, cartID string, version int64, items []model.LineItemDraft) (*model.Cart, error) {
	for _, item := range items {
		if item.Quantity == 0 {
			continue
		}
		if err := item.Validate(); err != nil {
			return nil, model.NewValidationError("items", err.Error())
		}
	}

	cart, err := s.commerce.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Version != version {
		return nil, model.NewConflictError("cart", "version mismatch")
	}

	diff := reconcile.DiffLineItems(cart.LineItems, items)
	if diff.IsEmpty() {
		return cart, nil
	}

	for _, r := range diff.ToRemove {
		if cart, err = s.commerce.RemoveLineItem(ctx, cart.ID, r.LineItemID, cart.Version); err != nil {
			return nil, err
		}
	}
	for _, u := range diff.ToUpdate {
		if cart, err = s.commerce.UpdateLineItemQuantity(ctx, cart.ID, u.LineItemID, u.NewQuantity, cart.Version); err != nil {
			return nil, err
		}
	}
	if len(diff.ToAdd) > 0 {
		if cart, err = s.commerce.AddLineItems(ctx, cart.ID, cart.Version, diff.ToAdd); err != nil {
			return nil, err
		}
	}

	s.logger.DebugContext(ctx, "cart line items reconciled",
		slog.String("cart_id", cart.ID),
		slog.Int("removed", len(diff.ToRemove)),
		slog.Int("updated", len(diff.ToUpdate)),
		slog.Int("added", len(diff.ToAdd)),
		slog.Int64("version", cart.Version),
	)
	return cart, nil
}

// SetShippingAddress sets the cart's shipping address. The country must be
// on the shipping allow-list.
func (s *Service) SetShippingAddress(ctx context.Context, cartID string, version int64, address model.Address) (*model.Cart, error) {
	if address.Country == "" {
		return nil, model.NewValidationError("address.country", "required")
	}
	if !s.allowedCountry(address.Country) {
		return nil, model.NewValidationError("address.country", "We currently only ship to "+s.allowedCountriesText())
	}
	return s.commerce.SetShippingAddress(ctx, cartID, version, address)
}

// ShippingMethods lists the methods available for the cart's address.
func (s *Service) ShippingMethods(ctx context.Context, cartID string) ([]model.ShippingMethod, error) {
	return s.commerce.GetShippingMethods(ctx, cartID)
}

// SetShippingMethod selects a shipping method. Selecting the method already
// on the cart returns the cart unchanged.
func (s *Service) SetShippingMethod(ctx context.Context, cartID string, version int64, methodID string) (*model.Cart, error) {
	if methodID == "" {
		return nil, model.NewValidationError("methodId", "required")
	}
	cart, err := s.commerce.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Version != version {
		return nil, model.NewConflictError("cart", "version mismatch")
	}

	current := ""
	if cart.ShippingInfo != nil && cart.ShippingInfo.ShippingMethod != nil {
		current = cart.ShippingInfo.ShippingMethod.ID
	}
	if !reconcile.ShippingMethodChanged(current, methodID) {
		return cart, nil
	}
	return s.commerce.SetShippingMethod(ctx, cart.ID, cart.Version, methodID)
}

// RegisterCustomer creates a customer account. Without a password the
// customer is a guest record and an existing account with the same email is
// returned instead.
func (s *Service) RegisterCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error) {
	if draft.Email == "" {
		return nil, model.NewValidationError("email", "required")
	}
	if draft.Password != "" {
		return s.commerce.CreateCustomer(ctx, draft)
	}
	return s.commerce.CreateOrGetCustomer(ctx, draft)
}
