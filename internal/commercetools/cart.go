package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/model"
)

const (
	pathCarts                  = "/carts"
	pathShippingMethodsForCart = "/shipping-methods/matching-cart"

	defaultCurrency = "USD"
	defaultCountry  = "US"
)

// CreateCart creates an empty cart. Currency defaults to USD and country to US.
func (c *Client) CreateCart(ctx context.Context, draft model.CartDraft) (*model.Cart, error) {
	body := &CartDraftWire{
		Currency:      withDefault(draft.Currency, defaultCurrency),
		Country:       withDefault(draft.Country, defaultCountry),
		CustomerID:    draft.CustomerID,
		CustomerEmail: draft.CustomerEmail,
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathCarts, nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating cart request: %w", err)
	}

	var cart model.Cart
	if err := c.do(req, &cart); err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	return &cart, nil
}

// GetCart returns the cart at its current version.
func (c *Client) GetCart(ctx context.Context, cartID string) (*model.Cart, error) {
	req, err := c.newRequest(ctx, http.MethodGet, cartPath(cartID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get cart request: %w", err)
	}

	var cart model.Cart
	if err := c.do(req, &cart); err != nil {
		return nil, fmt.Errorf("fetching cart %s: %w", cartID, err)
	}
	return &cart, nil
}

// AddLineItems adds all items in a single update at the given version.
// Each draft is sent with its SKU or its productId+variantId, never both.
func (c *Client) AddLineItems(ctx context.Context, cartID string, version int64, items []model.LineItemDraft) (*model.Cart, error) {
	actions := make([]UpdateAction, 0, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("items[%d]", i), err.Error())
		}
		actions = append(actions, addLineItemAction(item))
	}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("adding line items to cart %s: %w", cartID, err)
	}
	return &cart, nil
}

// addLineItemAction branches on the identifier the draft carries.
func addLineItemAction(item model.LineItemDraft) UpdateAction {
	qty := item.Quantity
	action := UpdateAction{Action: "addLineItem", Quantity: &qty}
	if item.SKU != "" {
		action.SKU = item.SKU
	} else {
		action.ProductID = item.ProductID
		action.VariantID = item.VariantID
	}
	return action
}

// UpdateLineItemQuantity sets a line item's quantity. Zero removes it.
func (c *Client) UpdateLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int, version int64) (*model.Cart, error) {
	qty := quantity
	actions := []UpdateAction{{
		Action:     "changeLineItemQuantity",
		LineItemID: lineItemID,
		Quantity:   &qty,
	}}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("changing line item quantity: %w", err)
	}
	return &cart, nil
}

// RemoveLineItem removes a line item entirely.
func (c *Client) RemoveLineItem(ctx context.Context, cartID, lineItemID string, version int64) (*model.Cart, error) {
	actions := []UpdateAction{{Action: "removeLineItem", LineItemID: lineItemID}}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("removing line item: %w", err)
	}
	return &cart, nil
}

// SetShippingAddress replaces the cart's shipping address.
func (c *Client) SetShippingAddress(ctx context.Context, cartID string, version int64, address model.Address) (*model.Cart, error) {
	actions := []UpdateAction{{Action: "setShippingAddress", Address: &address}}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("setting shipping address: %w", err)
	}
	return &cart, nil
}

// GetShippingMethods lists the methods valid for the cart's shipping address.
func (c *Client) GetShippingMethods(ctx context.Context, cartID string) ([]model.ShippingMethod, error) {
	query := url.Values{}
	query.Set("cartId", cartID)

	req, err := c.newRequest(ctx, http.MethodGet, pathShippingMethodsForCart, query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating shipping methods request: %w", err)
	}

	var resp PagedResponse[ShippingMethodWire]
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("fetching shipping methods: %w", err)
	}

	methods := make([]model.ShippingMethod, 0, len(resp.Results))
	for _, m := range resp.Results {
		methods = append(methods, transformShippingMethod(m))
	}
	return methods, nil
}

// transformShippingMethod picks the rate the backend marked as matching the cart.
func transformShippingMethod(m ShippingMethodWire) model.ShippingMethod {
	out := model.ShippingMethod{
		ID:          m.ID,
		Key:         m.Key,
		Name:        m.Name,
		Description: m.LocalizedDescription.Preferred(),
		IsDefault:   m.IsDefault,
	}
	for _, zone := range m.ZoneRates {
		for _, rate := range zone.ShippingRates {
			if rate.IsMatching {
				price := rate.Price
				out.Price = &price
				return out
			}
		}
	}
	return out
}

// SetShippingMethod selects a shipping method on the cart.
func (c *Client) SetShippingMethod(ctx context.Context, cartID string, version int64, methodID string) (*model.Cart, error) {
	actions := []UpdateAction{{
		Action:         "setShippingMethod",
		ShippingMethod: &ResourceIdentifier{TypeID: "shipping-method", ID: methodID},
	}}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("setting shipping method: %w", err)
	}
	return &cart, nil
}

// AddPaymentToCart attaches a payment to the cart.
func (c *Client) AddPaymentToCart(ctx context.Context, cartID string, version int64, paymentID string) (*model.Cart, error) {
	actions := []UpdateAction{{
		Action:  "addPayment",
		Payment: &ResourceIdentifier{TypeID: "payment", ID: paymentID},
	}}

	var cart model.Cart
	if err := c.update(ctx, cartPath(cartID), version, actions, &cart); err != nil {
		return nil, fmt.Errorf("adding payment to cart: %w", err)
	}
	return &cart, nil
}

func cartPath(cartID string) string {
	return pathCarts + "/" + url.PathEscape(cartID)
}
