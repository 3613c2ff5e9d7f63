package commercetools

import (
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================
//
// Cart, Order, Payment and Customer decode straight into the model package.
// Only shapes that the storefront reshapes (product projections, shipping
// methods) or only sends (drafts, update actions) live here.
// =============================================================================

// BackendError is the backend's error body.
type BackendError struct {
	StatusCode int                `json:"statusCode"`
	Message    string             `json:"message"`
	Errors     []BackendErrorItem `json:"errors"`
}

// BackendErrorItem is one entry of BackendError.Errors.
type BackendErrorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *BackendError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("status %d: %s (%s)", e.StatusCode, e.Message, e.Errors[0].Code)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// HasCode reports whether any error item carries code, e.g. "DuplicateField".
func (e *BackendError) HasCode(code string) bool {
	for _, item := range e.Errors {
		if item.Code == code {
			return true
		}
	}
	return false
}

// PagedResponse is the envelope of every query endpoint.
type PagedResponse[T any] struct {
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Count   int `json:"count"`
	Total   int `json:"total"`
	Results []T `json:"results"`
}

// === Product projections ===

// ProductProjection is the current, published view of a product.
type ProductProjection struct {
	ID            string                `json:"id"`
	Version       int64                 `json:"version"`
	Key           string                `json:"key,omitempty"`
	Name          model.LocalizedString `json:"name"`
	Description   model.LocalizedString `json:"description,omitempty"`
	Slug          model.LocalizedString `json:"slug"`
	MasterVariant *ProductVariant       `json:"masterVariant"`
	Variants      []ProductVariant      `json:"variants"`
	CreatedAt     time.Time             `json:"createdAt"`
}

// ProductVariant is a variant of a ProductProjection.
type ProductVariant struct {
	ID           int            `json:"id"`
	SKU          string         `json:"sku,omitempty"`
	Prices       []VariantPrice `json:"prices,omitempty"`
	Images       []VariantImage `json:"images,omitempty"`
	Attributes   []Attribute    `json:"attributes,omitempty"`
	Availability *Availability  `json:"availability,omitempty"`
}

// VariantPrice is one price of a variant.
type VariantPrice struct {
	ID    string      `json:"id,omitempty"`
	Value model.Money `json:"value"`
}

// VariantImage is a hosted variant image.
type VariantImage struct {
	URL        string           `json:"url"`
	Label      string           `json:"label,omitempty"`
	Dimensions *ImageDimensions `json:"dimensions,omitempty"`
}

// ImageDimensions holds pixel width and height.
type ImageDimensions struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Attribute is a typed product attribute. Value depends on the attribute
// type: a string, an enum {key,label}, a localized string, a number...
type Attribute struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Availability is the variant's inventory summary.
type Availability struct {
	IsOnStock         bool `json:"isOnStock"`
	AvailableQuantity int  `json:"availableQuantity"`
}

// === Shipping methods ===

// ShippingMethodWire is a shipping method as returned by matching-cart.
type ShippingMethodWire struct {
	ID                   string                `json:"id"`
	Key                  string                `json:"key,omitempty"`
	Name                 string                `json:"name"`
	LocalizedDescription model.LocalizedString `json:"localizedDescription,omitempty"`
	IsDefault            bool                  `json:"isDefault"`
	ZoneRates            []ZoneRate            `json:"zoneRates"`
}

// ZoneRate groups the rates of a shipping zone.
type ZoneRate struct {
	ShippingRates []ShippingRate `json:"shippingRates"`
}

// ShippingRate is one price of a shipping method in a zone.
type ShippingRate struct {
	Price      model.Money `json:"price"`
	IsMatching bool        `json:"isMatching"`
}

// === Drafts and update actions ===

// UpdateRequest is the body of every entity update.
type UpdateRequest struct {
	Version int64          `json:"version"`
	Actions []UpdateAction `json:"actions"`
}

// UpdateAction is a single update action. Only the fields of the named
// action are set.
type UpdateAction struct {
	Action string `json:"action"`

	// addLineItem: either SKU or ProductID+VariantID.
	SKU       string `json:"sku,omitempty"`
	ProductID string `json:"productId,omitempty"`
	VariantID int    `json:"variantId,omitempty"`
	Quantity  *int   `json:"quantity,omitempty"`

	// changeLineItemQuantity, removeLineItem
	LineItemID string `json:"lineItemId,omitempty"`

	// setShippingAddress
	Address *model.Address `json:"address,omitempty"`

	// setShippingMethod, addPayment
	ShippingMethod *ResourceIdentifier `json:"shippingMethod,omitempty"`
	Payment        *ResourceIdentifier `json:"payment,omitempty"`

	// addTransaction, changeTransactionState
	Transaction   *TransactionDraftWire `json:"transaction,omitempty"`
	TransactionID string                `json:"transactionId,omitempty"`
	State         string                `json:"state,omitempty"`
}

// ResourceIdentifier references an entity in drafts and actions.
type ResourceIdentifier struct {
	TypeID string `json:"typeId"`
	ID     string `json:"id"`
}

// CartDraftWire is the POST /carts body.
type CartDraftWire struct {
	Currency      string `json:"currency"`
	Country       string `json:"country,omitempty"`
	CustomerID    string `json:"customerId,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// OrderFromCartDraft is the POST /orders body.
type OrderFromCartDraft struct {
	ID          string `json:"id"`
	Version     int64  `json:"version"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// PaymentDraftWire is the POST /payments body.
type PaymentDraftWire struct {
	AmountPlanned     model.Money             `json:"amountPlanned"`
	PaymentMethodInfo model.PaymentMethodInfo `json:"paymentMethodInfo"`
	Customer          *ResourceIdentifier     `json:"customer,omitempty"`
	InterfaceID       string                  `json:"interfaceId,omitempty"`
}

// TransactionDraftWire is the transaction of an addTransaction action.
type TransactionDraftWire struct {
	Type          string      `json:"type"`
	Amount        model.Money `json:"amount"`
	State         string      `json:"state,omitempty"`
	InteractionID string      `json:"interactionId,omitempty"`
}

// CustomerSignInResult is the POST /customers response.
type CustomerSignInResult struct {
	Customer model.Customer `json:"customer"`
}
