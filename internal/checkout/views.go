package checkout

import (
	"time"

	"storefront/internal/model"
	"storefront/internal/payments"
)

// MoneyView is the storefront's money shape.
type MoneyView struct {
	CentAmount   int64  `json:"centAmount"`
	CurrencyCode string `json:"currencyCode"`
}

func moneyView(m model.Money) MoneyView {
	return MoneyView{CentAmount: m.CentAmount, CurrencyCode: m.CurrencyCode}
}

// OrderResult is the direct order flow's response.
type OrderResult struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	CartID      string    `json:"cartId"`
	TotalPrice  MoneyView `json:"totalPrice"`
	URL         string    `json:"url"`
}

// HostedSessionResult is the hosted checkout session response.
type HostedSessionResult struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId"`
	CartID     string `json:"cartId"`
	Region     string `json:"region"`
	ProjectKey string `json:"projectKey"`
}

// StripeSessionResult is the processor checkout session response.
type StripeSessionResult struct {
	SessionID   string `json:"sessionId"`
	URL         string `json:"url"`
	CartID      string `json:"cartId"`
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

// OrderView is a formatted order.
type OrderView struct {
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	CustomerID    string          `json:"customerId,omitempty"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	TotalPrice    MoneyView       `json:"totalPrice"`
	LineItems     []OrderLineView `json:"lineItems"`
	OrderState    string          `json:"orderState,omitempty"`
	PaymentState  string          `json:"paymentState,omitempty"`
	ShipmentState string          `json:"shipmentState,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderLineView is a formatted order line.
type OrderLineView struct {
	ID         string                `json:"id"`
	Name       model.LocalizedString `json:"name"`
	Quantity   int                   `json:"quantity"`
	TotalPrice MoneyView             `json:"totalPrice"`
}

// FormatOrder converts a backend order to its storefront view.
func FormatOrder(o *model.Order) *OrderView {
	v := &OrderView{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		TotalPrice:    moneyView(o.TotalPrice),
		LineItems:     make([]OrderLineView, 0, len(o.LineItems)),
		OrderState:    o.OrderState,
		PaymentState:  o.PaymentState,
		ShipmentState: o.ShipmentState,
		CreatedAt:     o.CreatedAt,
	}
	for _, li := range o.LineItems {
		v.LineItems = append(v.LineItems, OrderLineView{
			ID:         li.ID,
			Name:       li.Name,
			Quantity:   li.Quantity,
			TotalPrice: moneyView(li.TotalPrice),
		})
	}
	return v
}

// SessionStatus is returned when a paid session has no order yet.
type SessionStatus struct {
	SessionID     string `json:"sessionId"`
	PaymentStatus string `json:"paymentStatus"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	AmountTotal   int64  `json:"amountTotal"`
	Currency      string `json:"currency"`
	Message       string `json:"message"`
}

func sessionStatus(s *payments.Session) *SessionStatus {
	return &SessionStatus{
		SessionID:     s.ID,
		PaymentStatus: s.PaymentStatus,
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Currency:      s.Currency,
		Message:       "Payment successful. Order is being processed.",
	}
}

// LookupResult holds either an order or, while fulfillment is pending, the
// session status. Paid reports a paid processor session.
type LookupResult struct {
	Order   *OrderView
	Session *SessionStatus
	Paid    bool
}
