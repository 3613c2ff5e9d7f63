package adapter

import (
	"context"

	"storefront/internal/agility"
	"storefront/internal/commercetools"
	"storefront/internal/model"
	"storefront/internal/payments"
)

// MockCommerce implements Commerce for testing.
// Each method can be configured via function fields; unset methods fail.
type MockCommerce struct {
	FetchProductsFunc          func(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error)
	FetchProductBySlugFunc     func(ctx context.Context, slug, locale string) (*model.Product, error)
	FetchProductByIDFunc       func(ctx context.Context, id, locale string) (*model.Product, error)
	CreateCartFunc             func(ctx context.Context, draft model.CartDraft) (*model.Cart, error)
	GetCartFunc                func(ctx context.Context, cartID string) (*model.Cart, error)
	AddLineItemsFunc           func(ctx context.Context, cartID string, version int64, items []model.LineItemDraft) (*model.Cart, error)
	UpdateLineItemQuantityFunc func(ctx context.Context, cartID, lineItemID string, quantity int, version int64) (*model.Cart, error)
	RemoveLineItemFunc         func(ctx context.Context, cartID, lineItemID string, version int64) (*model.Cart, error)
	SetShippingAddressFunc     func(ctx context.Context, cartID string, version int64, address model.Address) (*model.Cart, error)
	GetShippingMethodsFunc     func(ctx context.Context, cartID string) ([]model.ShippingMethod, error)
	SetShippingMethodFunc      func(ctx context.Context, cartID string, version int64, methodID string) (*model.Cart, error)
	AddPaymentToCartFunc       func(ctx context.Context, cartID string, version int64, paymentID string) (*model.Cart, error)
	CreateOrderFromCartFunc    func(ctx context.Context, cartID string, version int64, opts model.OrderOptions) (*model.Order, error)
	GetOrderFunc               func(ctx context.Context, orderID string) (*model.Order, error)
	FindOrderByCartIDFunc      func(ctx context.Context, cartID string) (*model.Order, error)
	FindLatestOrderByEmailFunc func(ctx context.Context, email string) (*model.Order, error)
	CreatePaymentFunc          func(ctx context.Context, draft model.PaymentDraft) (*model.Payment, error)
	AddTransactionFunc         func(ctx context.Context, paymentID string, version int64, tx model.TransactionDraft) (*model.Payment, error)
	ChangeTransactionStateFunc func(ctx context.Context, paymentID string, version int64, transactionID, state string) (*model.Payment, error)
	CreateCustomerFunc         func(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error)
	GetCustomerFunc            func(ctx context.Context, customerID string) (*model.Customer, error)
	CreateOrGetCustomerFunc    func(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error)
}

func (m *MockCommerce) FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
	if m.FetchProductsFunc != nil {
		return m.FetchProductsFunc(ctx, q)
	}
	return &model.ProductPage{Results: []model.Product{}}, nil
}

// FetchProductBySlug calls the configured func or reports no match.
func (m *MockCommerce) FetchProductBySlug(ctx context.Context, slug, locale string) (*model.Product, error) {
	if m.FetchProductBySlugFunc != nil {
		return m.FetchProductBySlugFunc(ctx, slug, locale)
	}
	return nil, nil
}

func (m *MockCommerce) FetchProductByID(ctx context.Context, id, locale string) (*model.Product, error) {
	if m.FetchProductByIDFunc != nil {
		return m.FetchProductByIDFunc(ctx, id, locale)
	}
	return nil, model.NewNotFoundError("product")
}

func (m *MockCommerce) CreateCart(ctx context.Context, draft model.CartDraft) (*model.Cart, error) {
	if m.CreateCartFunc != nil {
		return m.CreateCartFunc(ctx, draft)
	}
	return nil, model.NewInternalError(nil)
}

func (m *MockCommerce) GetCart(ctx context.Context, cartID string) (*model.Cart, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, cartID)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) AddLineItems(ctx context.Context, cartID string, version int64, items []model.LineItemDraft) (*model.Cart, error) {
	if m.AddLineItemsFunc != nil {
		return m.AddLineItemsFunc(ctx, cartID, version, items)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) UpdateLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int, version int64) (*model.Cart, error) {
	if m.UpdateLineItemQuantityFunc != nil {
		return m.UpdateLineItemQuantityFunc(ctx, cartID, lineItemID, quantity, version)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) RemoveLineItem(ctx context.Context, cartID, lineItemID string, version int64) (*model.Cart, error) {
	if m.RemoveLineItemFunc != nil {
		return m.RemoveLineItemFunc(ctx, cartID, lineItemID, version)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) SetShippingAddress(ctx context.Context, cartID string, version int64, address model.Address) (*model.Cart, error) {
	if m.SetShippingAddressFunc != nil {
		return m.SetShippingAddressFunc(ctx, cartID, version, address)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) GetShippingMethods(ctx context.Context, cartID string) ([]model.ShippingMethod, error) {
	if m.GetShippingMethodsFunc != nil {
		return m.GetShippingMethodsFunc(ctx, cartID)
	}
	return []model.ShippingMethod{}, nil
}

func (m *MockCommerce) SetShippingMethod(ctx context.Context, cartID string, version int64, methodID string) (*model.Cart, error) {
	if m.SetShippingMethodFunc != nil {
		return m.SetShippingMethodFunc(ctx, cartID, version, methodID)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) AddPaymentToCart(ctx context.Context, cartID string, version int64, paymentID string) (*model.Cart, error) {
	if m.AddPaymentToCartFunc != nil {
		return m.AddPaymentToCartFunc(ctx, cartID, version, paymentID)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockCommerce) CreateOrderFromCart(ctx context.Context, cartID string, version int64, opts model.OrderOptions) (*model.Order, error) {
	if m.CreateOrderFromCartFunc != nil {
		return m.CreateOrderFromCartFunc(ctx, cartID, version, opts)
	}
	return nil, model.NewInternalError(nil)
}

func (m *MockCommerce) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, model.NewNotFoundError("order")
}

func (m *MockCommerce) FindOrderByCartID(ctx context.Context, cartID string) (*model.Order, error) {
	if m.FindOrderByCartIDFunc != nil {
		return m.FindOrderByCartIDFunc(ctx, cartID)
	}
	return nil, nil
}

func (m *MockCommerce) FindLatestOrderByEmail(ctx context.Context, email string) (*model.Order, error) {
	if m.FindLatestOrderByEmailFunc != nil {
		return m.FindLatestOrderByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockCommerce) CreatePayment(ctx context.Context, draft model.PaymentDraft) (*model.Payment, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, draft)
	}
	return nil, model.NewInternalError(nil)
}

func (m *MockCommerce) AddTransaction(ctx context.Context, paymentID string, version int64, tx model.TransactionDraft) (*model.Payment, error) {
	if m.AddTransactionFunc != nil {
		return m.AddTransactionFunc(ctx, paymentID, version, tx)
	}
	return nil, model.NewNotFoundError("payment")
}

func (m *MockCommerce) ChangeTransactionState(ctx context.Context, paymentID string, version int64, transactionID, state string) (*model.Payment, error) {
	if m.ChangeTransactionStateFunc != nil {
		return m.ChangeTransactionStateFunc(ctx, paymentID, version, transactionID, state)
	}
	return nil, model.NewNotFoundError("payment")
}

func (m *MockCommerce) CreateCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, draft)
	}
	return nil, model.NewInternalError(nil)
}

func (m *MockCommerce) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, customerID)
	}
	return nil, model.NewNotFoundError("customer")
}

func (m *MockCommerce) CreateOrGetCustomer(ctx context.Context, draft model.CustomerDraft) (*model.Customer, error) {
	if m.CreateOrGetCustomerFunc != nil {
		return m.CreateOrGetCustomerFunc(ctx, draft)
	}
	return nil, model.NewInternalError(nil)
}

// MockSessions implements HostedSessions for testing.
type MockSessions struct {
	CreateSessionFunc func(ctx context.Context, cartID string) (*commercetools.HostedSession, error)
	RegionValue       string
	ProjectKeyValue   string
}

func (m *MockSessions) CreateSession(ctx context.Context, cartID string) (*commercetools.HostedSession, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, cartID)
	}
	return &commercetools.HostedSession{ID: "session-" + cartID}, nil
}

func (m *MockSessions) Region() string     { return m.RegionValue }
func (m *MockSessions) ProjectKey() string { return m.ProjectKeyValue }

// MockProcessor implements Processor for testing.
type MockProcessor struct {
	CreateCheckoutSessionFunc func(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
	GetCheckoutSessionFunc    func(ctx context.Context, id string) (*payments.Session, error)
	ParseWebhookFunc          func(payload []byte, signature string) (*payments.Event, error)
}

func (m *MockProcessor) CreateCheckoutSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

func (m *MockProcessor) GetCheckoutSession(ctx context.Context, id string) (*payments.Session, error) {
	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("checkout session")
}

// ParseWebhook calls the configured func or rejects the signature.
func (m *MockProcessor) ParseWebhook(payload []byte, signature string) (*payments.Event, error) {
	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signature)
	}
	return nil, payments.ErrInvalidSignature
}

// MockCMS implements CMS for testing.
type MockCMS struct {
	GetContentListFunc func(ctx context.Context, q agility.ListQuery) (*agility.ContentList, error)
	GetContentItemFunc func(ctx context.Context, contentID int, locale string) (*agility.ContentItem, error)
	GetSitemapFlatFunc func(ctx context.Context, channel, locale string) (agility.Sitemap, error)
	GetPageFunc        func(ctx context.Context, pageID int, locale string) (*agility.Page, error)
}

func (m *MockCMS) GetContentList(ctx context.Context, q agility.ListQuery) (*agility.ContentList, error) {
	if m.GetContentListFunc != nil {
		return m.GetContentListFunc(ctx, q)
	}
	return &agility.ContentList{}, nil
}

func (m *MockCMS) GetContentItem(ctx context.Context, contentID int, locale string) (*agility.ContentItem, error) {
	if m.GetContentItemFunc != nil {
		return m.GetContentItemFunc(ctx, contentID, locale)
	}
	return nil, model.NewNotFoundError("content")
}

func (m *MockCMS) GetSitemapFlat(ctx context.Context, channel, locale string) (agility.Sitemap, error) {
	if m.GetSitemapFlatFunc != nil {
		return m.GetSitemapFlatFunc(ctx, channel, locale)
	}
	return agility.Sitemap{}, nil
}

func (m *MockCMS) GetPage(ctx context.Context, pageID int, locale string) (*agility.Page, error) {
	if m.GetPageFunc != nil {
		return m.GetPageFunc(ctx, pageID, locale)
	}
	return nil, model.NewNotFoundError("page")
}

// Verify mocks implement their interfaces at compile time.
var (
	_ Commerce       = (*MockCommerce)(nil)
	_ HostedSessions = (*MockSessions)(nil)
	_ Processor      = (*MockProcessor)(nil)
	_ CMS            = (*MockCMS)(nil)
)
