package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"storefront/internal/model"
	"storefront/internal/payments"
)

// Session metadata keys written on processor sessions and read back by the
// webhook and the lookup endpoint.
const (
	MetaCartID      = "commercetools_cart_id"
	MetaCartVersion = "commercetools_cart_version"
	MetaCustomerID  = "commercetools_customer_id"
	MetaOrderItems  = "order_items"
)

// OrderRequest is the body of the direct order and hosted session flows.
type OrderRequest struct {
	Items      []model.CartItem `json:"items"`
	CustomerID string           `json:"customerId,omitempty"`
	Email      string           `json:"email,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	Country    string           `json:"country,omitempty"`
}

// StripeSessionRequest is the body of the processor checkout session flow.
type StripeSessionRequest struct {
	Items           []model.CartItem `json:"items"`
	CustomerID      string           `json:"customerId,omitempty"`
	Email           string           `json:"email,omitempty"`
	ShippingAddress *model.Address   `json:"shippingAddress,omitempty"`
	Currency        string           `json:"currency,omitempty"`
}

// === Direct Order ===

// PlaceOrder creates a cart from the items and turns it into an order
// without payment. Every item's product is resolved by slug in parallel and
// its variant SKU verified before the cart is created.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest, origin string) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, errInvalidItems
	}
	for _, item := range req.Items {
		if item.Product.Slug == "" || item.VariantSKU == "" || item.Quantity <= 0 {
			return nil, errInvalidItems
		}
	}

	const title = "Internal server error"

	drafts := make([]model.LineItemDraft, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range req.Items {
		g.Go(func() error {
			p, err := s.commerce.FetchProductBySlug(gctx, item.Product.Slug, "en")
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("Product not found: %s", item.Product.Slug)
			}
			if p.VariantBySKU(item.VariantSKU) == nil {
				return fmt.Errorf("Variant not found: %s", item.VariantSKU)
			}
			drafts[i] = model.LineItemDraft{SKU: item.VariantSKU, Quantity: item.Quantity}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failed(title, err)
	}

	country := withDefault(req.Country, s.cfg.DefaultCountry)
	cart, err := s.commerce.CreateCart(ctx, model.CartDraft{
		Currency:      withDefault(req.Currency, s.cfg.DefaultCurrency),
		Country:       country,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.Email,
	})
	if err != nil {
		return nil, failed(title, err)
	}

	cart, err = s.commerce.AddLineItems(ctx, cart.ID, cart.Version, drafts)
	if err != nil {
		return nil, failed(title, err)
	}

	cart, err = s.commerce.SetShippingAddress(ctx, cart.ID, cart.Version, model.Address{Country: country})
	if err != nil {
		return nil, failed(title, err)
	}

	order, err := s.commerce.CreateOrderFromCart(ctx, cart.ID, cart.Version, model.OrderOptions{})
	if err != nil {
		return nil, failed(title, err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("cart_id", cart.ID),
	)

	siteURL := withDefault(strings.TrimRight(origin, "/"), s.cfg.SiteURL)
	return &OrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CartID:      cart.ID,
		TotalPrice:  moneyView(order.TotalPrice),
		URL:         siteURL + "/checkout/success?order_id=" + url.QueryEscape(order.ID),
	}, nil
}

// === Hosted Checkout Session ===

// CreateHostedSession prepares a cart and opens a backend-hosted checkout
// session for it. The hosted UI collects address and payment and creates the
// order itself.
func (s *Service) CreateHostedSession(ctx context.Context, req OrderRequest) (*HostedSessionResult, error) {
	if len(req.Items) == 0 {
		return nil, errInvalidItems
	}
	if s.sessions == nil {
		return nil, &Error{
			Status:  500,
			Title:   "Missing required commercetools Checkout configuration",
			Details: s.cfg.SessionPresence,
			Err:     model.ErrConfiguration,
		}
	}

	drafts, err := lineItemDrafts(req.Items)
	if err != nil {
		return nil, err
	}

	const title = "Internal server error"
	country := withDefault(req.Country, s.cfg.DefaultCountry)

	cart, err := s.commerce.CreateCart(ctx, model.CartDraft{
		Currency:      withDefault(req.Currency, s.cfg.DefaultCurrency),
		Country:       country,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.Email,
	})
	if err != nil {
		return nil, failed(title, err)
	}
	if cart, err = s.commerce.AddLineItems(ctx, cart.ID, cart.Version, drafts); err != nil {
		return nil, failed(title, err)
	}
	if cart, err = s.commerce.SetShippingAddress(ctx, cart.ID, cart.Version, model.Address{Country: country}); err != nil {
		return nil, failed(title, err)
	}

	session, err := s.sessions.CreateSession(ctx, cart.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "hosted checkout session creation failed",
			slog.String("cart_id", cart.ID),
			slog.Int64("cart_version", cart.Version),
			slog.Bool("has_shipping_address", cart.ShippingAddress != nil),
			slog.String("error", err.Error()),
		)
		return nil, failed(title, err)
	}

	return &HostedSessionResult{
		Success:    true,
		SessionID:  session.ID,
		CartID:     cart.ID,
		Region:     s.sessions.Region(),
		ProjectKey: s.sessions.ProjectKey(),
	}, nil
}

// === Processor Checkout Session ===

type orderItemManifest struct {
	ProductID   string `json:"productId,omitempty"`
	VariantSKU  string `json:"variantSKU"`
	Quantity    int    `json:"quantity"`
	ProductSlug string `json:"productSlug"`
}

// CreateStripeSession prepares a backend cart and opens a processor checkout
// session priced from that cart. The shipping country is checked against the
// allow-list before any backend write.
func (s *Service) CreateStripeSession(ctx context.Context, req StripeSessionRequest) (*StripeSessionResult, error) {
	if len(req.Items) == 0 {
		return nil, errInvalidItems
	}

	country := s.cfg.DefaultCountry
	if req.ShippingAddress != nil && req.ShippingAddress.Country != "" {
		country = strings.ToUpper(req.ShippingAddress.Country)
	}
	if !s.allowedCountry(country) {
		return nil, badRequest("Shipping not available", "We currently only ship to "+s.allowedCountriesText())
	}

	drafts, err := lineItemDrafts(req.Items)
	if err != nil {
		return nil, err
	}

	const title = "Failed to create checkout session"
	if s.processor == nil {
		return nil, failed(title, model.NewConfigurationError("payment processor is not configured"))
	}

	email := req.Email
	if req.CustomerID != "" {
		customer, err := s.commerce.GetCustomer(ctx, req.CustomerID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, badRequest("Unknown customer", "No customer with id "+req.CustomerID)
		}
		if err != nil {
			return nil, failed(title, err)
		}
		email = withDefault(email, customer.Email)
	}

	currency := withDefault(req.Currency, s.cfg.DefaultCurrency)
	cart, err := s.commerce.CreateCart(ctx, model.CartDraft{
		Currency:      currency,
		Country:       country,
		CustomerID:    req.CustomerID,
		CustomerEmail: email,
	})
	if err != nil {
		return nil, failed(title, err)
	}
	if cart, err = s.commerce.AddLineItems(ctx, cart.ID, cart.Version, drafts); err != nil {
		return nil, failed(title, err)
	}

	address := model.Address{Country: country}
	if req.ShippingAddress != nil {
		address = *req.ShippingAddress
		address.Country = country
	}
	if cart, err = s.commerce.SetShippingAddress(ctx, cart.ID, cart.Version, address); err != nil {
		return nil, failed(title, err)
	}

	// Re-read for totals computed after the address (tax, shipping).
	if cart, err = s.commerce.GetCart(ctx, cart.ID); err != nil {
		return nil, failed(title, err)
	}

	manifest := make([]orderItemManifest, len(req.Items))
	for i, item := range req.Items {
		manifest[i] = orderItemManifest{
			ProductID:   withDefault(item.ProductID, item.Product.CommercetoolsID),
			VariantSKU:  item.VariantSKU,
			Quantity:    item.Quantity,
			ProductSlug: item.Product.Slug,
		}
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, failed(title, err)
	}

	metadata := map[string]string{
		MetaCartID:      cart.ID,
		MetaCartVersion: strconv.FormatInt(cart.Version, 10),
		MetaOrderItems:  string(manifestJSON),
	}
	if req.CustomerID != "" {
		metadata[MetaCustomerID] = req.CustomerID
	}

	sessionReq := payments.SessionRequest{
		LineItems:     sessionLineItems(cart, req.Items),
		SuccessURL:    s.cfg.SiteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}&cart_id=" + url.QueryEscape(cart.ID),
		CancelURL:     s.cfg.SiteURL + "/checkout/cancel?cart_id=" + url.QueryEscape(cart.ID),
		CustomerEmail: email,
		Metadata:      metadata,
	}
	if req.ShippingAddress == nil {
		sessionReq.CollectShippingFor = s.cfg.AllowedCountries
	}

	session, err := s.processor.CreateCheckoutSession(ctx, sessionReq)
	if err != nil {
		return nil, failed(title, err)
	}

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("session_id", session.ID),
		slog.String("cart_id", cart.ID),
		slog.Int64("total_cents", cart.TotalPrice.CentAmount),
	)

	return &StripeSessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		CartID:      cart.ID,
		TotalAmount: cart.TotalPrice.CentAmount,
		Currency:    cart.TotalPrice.CurrencyCode,
	}, nil
}

// sessionLineItems prices each line from the backend cart. Names, images and
// descriptions come from the request item with the same SKU when present.
func sessionLineItems(cart *model.Cart, items []model.CartItem) []payments.SessionLineItem {
	bySKU := make(map[string]model.CartItem, len(items))
	for _, item := range items {
		bySKU[item.VariantSKU] = item
	}

	lines := make([]payments.SessionLineItem, 0, len(cart.LineItems))
	for _, li := range cart.LineItems {
		line := payments.SessionLineItem{
			Name:            li.Name.Preferred(),
			UnitAmountCents: li.Price.Value.CentAmount,
			Currency:        withDefault(li.Price.Value.CurrencyCode, cart.TotalPrice.CurrencyCode),
			Quantity:        int64(li.Quantity),
		}

		if item, ok := bySKU[li.Variant.SKU]; ok {
			line.Name = withDefault(item.Product.Title, line.Name)
			line.Description = withDefault(item.Variant.VariantName, item.Product.Description)
			switch {
			case item.Variant.VariantImage != nil && item.Variant.VariantImage.URL != "":
				line.Images = []string{item.Variant.VariantImage.URL}
			case item.Product.FeaturedImage != nil && item.Product.FeaturedImage.URL != "":
				line.Images = []string{item.Product.FeaturedImage.URL}
			}
		}
		if len(line.Images) == 0 && len(li.Variant.Images) > 0 {
			line.Images = []string{li.Variant.Images[0].URL}
		}
		if line.Name == "" {
			line.Name = withDefault(li.Variant.SKU, "Item")
		}
		lines = append(lines, line)
	}
	return lines
}

// === Order Lookup ===

// LookupOrder finds the order behind a processor session or an order id.
// A session whose order does not exist yet yields its payment status. When
// the session cannot be retrieved the order id, if any, is used instead.
func (s *Service) LookupOrder(ctx context.Context, sessionID, orderID string) (*LookupResult, error) {
	const title = "Failed to retrieve order"

	if sessionID != "" && s.processor != nil {
		session, err := s.processor.GetCheckoutSession(ctx, sessionID)
		if err != nil {
			s.logger.ErrorContext(ctx, "checkout session retrieval failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		} else {
			cartID := session.Metadata[MetaCartID]
			if cartID == "" {
				return nil, badRequest("Cart ID not found in session metadata", "")
			}

			paid := session.PaymentStatus == "paid"
			order, err := s.commerce.FindOrderByCartID(ctx, cartID)
			if err != nil {
				return nil, failed(title, err)
			}
			if order != nil {
				return &LookupResult{Order: FormatOrder(order), Paid: paid}, nil
			}
			return &LookupResult{Session: sessionStatus(session), Paid: paid}, nil
		}
	}

	if orderID != "" {
		order, err := s.commerce.GetOrder(ctx, orderID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, &Error{Status: 404, Title: "Order not found", Err: err}
		}
		if err != nil {
			return nil, failed(title, err)
		}
		return &LookupResult{Order: FormatOrder(order)}, nil
	}

	return nil, badRequest("Missing session_id or order_id parameter", "")
}

// LatestOrderForEmail returns the most recent order placed with email.
func (s *Service) LatestOrderForEmail(ctx context.Context, email string) (*OrderView, error) {
	order, err := s.commerce.FindLatestOrderByEmail(ctx, email)
	if err != nil {
		return nil, failed("Failed to retrieve order", err)
	}
	if order == nil {
		return nil, &Error{Status: 404, Title: "Order not found", Err: model.ErrNotFound}
	}
	return FormatOrder(order), nil
}
