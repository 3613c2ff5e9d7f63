// Package adapter defines the interfaces the storefront uses to reach its
// upstream platforms: the commerce backend, the payment processor and the CMS.
// Concrete clients live in commercetools, payments and agility.
package adapter

import (
	"context"

	"storefront/internal/agility"
	"storefront/internal/commercetools"
	"storefront/internal/model"
	"storefront/internal/payments"
)

// Catalog reads products from the commerce backend.
type Catalog interface {
	FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error)

	// FetchProductBySlug returns nil, nil when no locale candidate matches.
	FetchProductBySlug(ctx context.Context, slug, locale string) (*model.Product, error)

	FetchProductByID(ctx context.Context, id, locale string) (*model.Product, error)
}

// Carts manages backend carts. Every mutation takes the version of the most
// recent read and fails with a conflict when it is stale.
type Carts interface {
	CreateCart(ctx context.Context, draft model.CartDraft) (*model.Cart, error)
	GetCart(ctx context.Context, cartID string) (*model.Cart, error)
	AddLineItems(ctx context.Context, cartID string, version int64, items []model.LineItemDraft) (*model.Cart, error)
	UpdateLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int, version int64) (*model.Cart, error)
	RemoveLineItem(ctx context.Context, cartID, lineItemID string, version int64) (*model.Cart, error)
	SetShippingAddress(ctx context.Context, cartID string, version int64, address model.Address) (*model.Cart, error)
	GetShippingMethods(ctx context.Context, cartID string) ([]model.ShippingMethod, error)
	SetShippingMethod(ctx context.Context, cartID string, version int64, methodID string) (*model.Cart, error)
	AddPaymentToCart(ctx context.Context, cartID string, version int64, paymentID string) (*model.Cart, error)
}

// Orders creates and finds orders.
type Orders interface {
	CreateOrderFromCart(ctx context.Context, cartID string, version int64, opts model.OrderOptions) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)

	// FindOrderByCartID returns nil, nil when no order references the cart.
	FindOrderByCartID(ctx context.Context, cartID string) (*model.Order, error)

	// FindLatestOrderByEmail returns nil, nil when the email has no orders.
	FindLatestOrderByEmail(ctx context.Context, email string) (*model.Order, error)
}

// Payments records processor payments on the backend.
type Payments interface {
	CreatePayment(ctx context.Context, draft model.PaymentDraft) (*model.Payment, error)
	AddTransaction(ctx context.Context, paymentID string, version int64, tx model.TransactionDraft) (*model.Payment, error)
	ChangeTransactionState(ctx context.Context, paymentID string, version int64, transactionID, state string) (*model.Payment, error)
}

// Customers manages customer accounts.
type Customers interface {
	CreateCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*model.Customer, error)
	CreateOrGetCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error)
}

// Commerce is the full commerce backend surface. *commercetools.Client
// implements it.
type Commerce interface {
	Catalog
	Carts
	Orders
	Payments
	Customers
}

// HostedSessions creates backend-hosted checkout sessions.
type HostedSessions interface {
	CreateSession(ctx context.Context, cartID string) (*commercetools.HostedSession, error)
	Region() string
	ProjectKey() string
}

// Processor is the payment processor.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*payments.Session, error)

	// ParseWebhook verifies the signature before decoding. A bad signature
	// returns payments.ErrInvalidSignature.
	ParseWebhook(payload []byte, signature string) (*payments.Event, error)
}

// CMS reads content from the headless CMS.
type CMS interface {
	GetContentList(ctx context.Context, q agility.ListQuery) (*agility.ContentList, error)
	GetContentItem(ctx context.Context, contentID int, locale string) (*agility.ContentItem, error)
	GetSitemapFlat(ctx context.Context, channel, locale string) (agility.Sitemap, error)
	GetPage(ctx context.Context, pageID int, locale string) (*agility.Page, error)
}

var (
	_ Commerce       = (*commercetools.Client)(nil)
	_ HostedSessions = (*commercetools.SessionClient)(nil)
	_ Processor      = (*payments.StripeProcessor)(nil)
	_ CMS            = (*agility.Client)(nil)
)
