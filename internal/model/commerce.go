package model

import (
	"errors"
	"strings"
	"time"
)

// Reference points at another backend entity, e.g. {"typeId": "cart", "id": "..."}.
type Reference struct {
	TypeID string `json:"typeId"`
	ID     string `json:"id"`
}

// Address is a postal address as the commerce backend stores it.
// Country is an ISO 3166-1 alpha-2 code and the only required field.
type Address struct {
	FirstName            string `json:"firstName,omitempty"`
	LastName             string `json:"lastName,omitempty"`
	StreetName           string `json:"streetName,omitempty"`
	StreetNumber         string `json:"streetNumber,omitempty"`
	AdditionalStreetInfo string `json:"additionalStreetInfo,omitempty"`
	PostalCode           string `json:"postalCode,omitempty"`
	City                 string `json:"city,omitempty"`
	State                string `json:"state,omitempty"`
	Country              string `json:"country"`
	Email                string `json:"email,omitempty"`
	Phone                string `json:"phone,omitempty"`
}

// LineItemVariant is the variant snapshot embedded in a backend line item.
type LineItemVariant struct {
	ID     int     `json:"id"`
	SKU    string  `json:"sku,omitempty"`
	Images []Image `json:"images,omitempty"`
}

// LineItem is an entry of a backend cart or order.
type LineItem struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Name       LocalizedString `json:"name"`
	Variant    LineItemVariant `json:"variant"`
	Quantity   int             `json:"quantity"`
	Price      Price           `json:"price"`
	TotalPrice Money           `json:"totalPrice"`
}

// Price wraps the unit price of a line item.
type Price struct {
	ID    string `json:"id,omitempty"`
	Value Money  `json:"value"`
}

// ShippingInfo is the shipping method selected on a cart.
type ShippingInfo struct {
	ShippingMethodName string     `json:"shippingMethodName,omitempty"`
	Price              Money      `json:"price"`
	ShippingMethod     *Reference `json:"shippingMethod,omitempty"`
}

// PaymentInfo lists the payments attached to a cart or order.
type PaymentInfo struct {
	Payments []Reference `json:"payments"`
}

// Cart is the backend-owned cart. Every mutation needs the Version of the
// most recent read and returns the cart at its next version.
type Cart struct {
	ID              string        `json:"id"`
	Version         int64         `json:"version"`
	CustomerID      string        `json:"customerId,omitempty"`
	CustomerEmail   string        `json:"customerEmail,omitempty"`
	Country         string        `json:"country,omitempty"`
	CartState       string        `json:"cartState,omitempty"`
	LineItems       []LineItem    `json:"lineItems"`
	TotalPrice      Money         `json:"totalPrice"`
	ShippingAddress *Address      `json:"shippingAddress,omitempty"`
	ShippingInfo    *ShippingInfo `json:"shippingInfo,omitempty"`
	PaymentInfo     *PaymentInfo  `json:"paymentInfo,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// LineItemBySKU returns the line item whose variant has the given SKU, or nil.
func (c *Cart) LineItemBySKU(sku string) *LineItem {
	for i := range c.LineItems {
		if c.LineItems[i].Variant.SKU == sku {
			return &c.LineItems[i]
		}
	}
	return nil
}

// CartDraft creates a cart. Currency and Country default to USD / US.
type CartDraft struct {
	Currency      string `json:"currency"`
	Country       string `json:"country,omitempty"`
	CustomerID    string `json:"customerId,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

// LineItemDraft describes one item to add to a cart.
// It identifies the variant by SKU or by ProductID plus VariantID, never both.
type LineItemDraft struct {
	SKU       string `json:"sku,omitempty"`
	ProductID string `json:"productId,omitempty"`
	VariantID int    `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

var (
	errDraftBothIdentifiers = errors.New("line item has both sku and productId")
	errDraftNoIdentifier    = errors.New("line item needs a sku or a productId with variantId")
	errDraftQuantity        = errors.New("line item quantity must be positive")
)

// Validate enforces the identifier exclusivity and a positive quantity.
func (d LineItemDraft) Validate() error {
	hasSKU := strings.TrimSpace(d.SKU) != ""
	hasProduct := d.ProductID != ""
	switch {
	case hasSKU && hasProduct:
		return errDraftBothIdentifiers
	case !hasSKU && (!hasProduct || d.VariantID <= 0):
		return errDraftNoIdentifier
	case d.Quantity <= 0:
		return errDraftQuantity
	}
	return nil
}

// Order is created from a cart snapshot. States are owned by the backend.
type Order struct {
	ID              string     `json:"id"`
	Version         int64      `json:"version"`
	OrderNumber     string     `json:"orderNumber,omitempty"`
	CustomerID      string     `json:"customerId,omitempty"`
	CustomerEmail   string     `json:"customerEmail,omitempty"`
	LineItems       []LineItem `json:"lineItems"`
	TotalPrice      Money      `json:"totalPrice"`
	OrderState      string     `json:"orderState,omitempty"`
	PaymentState    string     `json:"paymentState,omitempty"`
	ShipmentState   string     `json:"shipmentState,omitempty"`
	Cart            *Reference `json:"cart,omitempty"`
	ShippingAddress *Address   `json:"shippingAddress,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// OrderOptions are optional settings for order creation.
type OrderOptions struct {
	OrderNumber string
}

// Transaction types and states used by payments.
const (
	TransactionAuthorization       = "Authorization"
	TransactionCharge              = "Charge"
	TransactionRefund              = "Refund"
	TransactionCancelAuthorization = "CancelAuthorization"

	TransactionInitial = "Initial"
	TransactionPending = "Pending"
	TransactionSuccess = "Success"
	TransactionFailure = "Failure"
)

// Transaction is one processor-side event recorded on a Payment.
type Transaction struct {
	ID            string    `json:"id,omitempty"`
	Type          string    `json:"type"`
	Amount        Money     `json:"amount"`
	State         string    `json:"state,omitempty"`
	InteractionID string    `json:"interactionId,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// PaymentMethodInfo labels how a payment was made.
type PaymentMethodInfo struct {
	PaymentInterface string          `json:"paymentInterface,omitempty"`
	Method           string          `json:"method,omitempty"`
	Name             LocalizedString `json:"name,omitempty"`
}

// Payment records an external charge inside the commerce backend.
type Payment struct {
	ID                string            `json:"id"`
	Version           int64             `json:"version"`
	InterfaceID       string            `json:"interfaceId,omitempty"`
	AmountPlanned     Money             `json:"amountPlanned"`
	PaymentMethodInfo PaymentMethodInfo `json:"paymentMethodInfo"`
	Customer          *Reference        `json:"customer,omitempty"`
	Transactions      []Transaction     `json:"transactions"`
}

// PaymentDraft creates a Payment.
type PaymentDraft struct {
	AmountCents int64
	Currency    string
	Method      string // e.g. "Stripe"
	Interface   string // e.g. "stripe"
	CustomerID  string
	InterfaceID string // processor payment intent id
}

// TransactionDraft adds a transaction to a Payment.
type TransactionDraft struct {
	Type          string
	AmountCents   int64
	Currency      string
	State         string
	InteractionID string
}

// Customer is a backend customer account.
type Customer struct {
	ID        string `json:"id"`
	Version   int64  `json:"version"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// CustomerDraft creates a Customer.
type CustomerDraft struct {
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ShippingMethod is a method available for a cart's shipping address.
type ShippingMethod struct {
	ID          string `json:"id"`
	Key         string `json:"key,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"isDefault"`
	Price       *Money `json:"price,omitempty"`
}

// CartItem is a storefront cart entry: snapshots of the product and variant
// taken when the shopper added it. Prices are advisory.
type CartItem struct {
	Product    Product `json:"product"`
	Variant    Variant `json:"variant"`
	Quantity   int     `json:"quantity"`
	VariantSKU string  `json:"variantSKU"`
	ProductID  string  `json:"productId,omitempty"`
}
