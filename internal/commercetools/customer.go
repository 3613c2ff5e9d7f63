package commercetools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/model"
)

const pathCustomers = "/customers"

// CreateCustomer registers a customer. Password is optional for passwordless
// accounts. An email that already exists yields a validation error.
func (c *Client) CreateCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error) {
	req, err := c.newRequest(ctx, http.MethodPost, pathCustomers, nil, &draft)
	if err != nil {
		return nil, fmt.Errorf("creating customer request: %w", err)
	}

	var resp CustomerSignInResult
	if err := c.do(req, &resp); err != nil {
		var ctErr *BackendError
		if errors.As(err, &ctErr) && ctErr.HasCode("DuplicateField") {
			return nil, model.NewValidationError("email", "A customer with this email already exists")
		}
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return &resp.Customer, nil
}

// FindCustomerByEmail returns the customer with that email, or nil, nil.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	query := url.Values{}
	query.Set("where", "email = :email")
	query.Set("var.email", email)
	query.Set("limit", "1")

	req, err := c.newRequest(ctx, http.MethodGet, pathCustomers, query, nil)
	if err != nil {
		return nil, fmt.Errorf("creating customer query: %w", err)
	}

	var resp PagedResponse[model.Customer]
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("finding customer by email: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// GetCustomer returns a customer by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathCustomers+"/"+url.PathEscape(customerID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get customer request: %w", err)
	}

	var customer model.Customer
	if err := c.do(req, &customer); err != nil {
		return nil, fmt.Errorf("fetching customer %s: %w", customerID, err)
	}
	return &customer, nil
}

// CreateOrGetCustomer returns the existing customer for the email, creating
// one without a password when none exists. Used to attach guest checkouts.
func (c *Client) CreateOrGetCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error) {
	existing, err := c.FindCustomerByEmail(ctx, draft.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	draft.Password = ""
	return c.CreateCustomer(ctx, draft)
}
