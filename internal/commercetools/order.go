package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/model"
)

const pathOrders = "/orders"

// CreateOrderFromCart turns the cart, at the given version, into an order.
func (c *Client) CreateOrderFromCart(ctx context.Context, cartID string, version int64, opts model.OrderOptions) (*model.Order, error) {
	body := &OrderFromCartDraft{
		ID:          cartID,
		Version:     version,
		OrderNumber: opts.OrderNumber,
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathOrders, nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating order request: %w", err)
	}

	var order model.Order
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("creating order from cart %s: %w", cartID, err)
	}
	return &order, nil
}

// GetOrder returns an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathOrders+"/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get order request: %w", err)
	}

	var order model.Order
	if err := c.do(req, &order); err != nil {
		return nil, fmt.Errorf("fetching order %s: %w", orderID, err)
	}
	return &order, nil
}

// FindOrderByCartID returns the order created from the given cart.
// Returns nil, nil when the cart has not been ordered yet.
func (c *Client) FindOrderByCartID(ctx context.Context, cartID string) (*model.Order, error) {
	query := url.Values{}
	query.Set("where", "cart(id = :cartId)")
	query.Set("var.cartId", cartID)
	query.Set("limit", "1")
	return c.queryOneOrder(ctx, query)
}

// FindLatestOrderByEmail returns the most recent order placed with email.
//
// Concurrent checkouts with the same email make this ambiguous. Prefer
// FindOrderByCartID; this exists for customer-facing order history lookups.
func (c *Client) FindLatestOrderByEmail(ctx context.Context, email string) (*model.Order, error) {
	query := url.Values{}
	query.Set("where", "customerEmail = :email")
	query.Set("var.email", email)
	query.Set("sort", "createdAt desc")
	query.Set("limit", "1")
	return c.queryOneOrder(ctx, query)
}

func (c *Client) queryOneOrder(ctx context.Context, query url.Values) (*model.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathOrders, query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating order query: %w", err)
	}

	var resp PagedResponse[model.Order]
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
