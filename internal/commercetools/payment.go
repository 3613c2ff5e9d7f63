package commercetools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/model"
)

const pathPayments = "/payments"

// CreatePayment records an external charge. Method defaults to "Stripe".
func (c *Client) CreatePayment(ctx context.Context, draft model.PaymentDraft) (*model.Payment, error) {
	body := &PaymentDraftWire{
		AmountPlanned: model.Money{
			CurrencyCode: draft.Currency,
			CentAmount:   draft.AmountCents,
		},
		PaymentMethodInfo: model.PaymentMethodInfo{
			Method:           withDefault(draft.Method, "Stripe"),
			PaymentInterface: draft.Interface,
		},
		InterfaceID: draft.InterfaceID,
	}
	if draft.CustomerID != "" {
		body.Customer = &ResourceIdentifier{TypeID: "customer", ID: draft.CustomerID}
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathPayments, nil, body)
	if err != nil {
		return nil, fmt.Errorf("creating payment request: %w", err)
	}

	var payment model.Payment
	if err := c.do(req, &payment); err != nil {
		return nil, fmt.Errorf("creating payment: %w", err)
	}
	return &payment, nil
}

// AddTransaction appends a transaction to the payment.
func (c *Client) AddTransaction(ctx context.Context, paymentID string, version int64, tx model.TransactionDraft) (*model.Payment, error) {
	actions := []UpdateAction{{
		Action: "addTransaction",
		Transaction: &TransactionDraftWire{
			Type: tx.Type,
			Amount: model.Money{
				CurrencyCode: tx.Currency,
				CentAmount:   tx.AmountCents,
			},
			State:         tx.State,
			InteractionID: tx.InteractionID,
		},
	}}

	var payment model.Payment
	if err := c.update(ctx, paymentPath(paymentID), version, actions, &payment); err != nil {
		return nil, fmt.Errorf("adding transaction to payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

// ChangeTransactionState moves a transaction to Pending, Success or Failure.
func (c *Client) ChangeTransactionState(ctx context.Context, paymentID string, version int64, transactionID, state string) (*model.Payment, error) {
	actions := []UpdateAction{{
		Action:        "changeTransactionState",
		TransactionID: transactionID,
		State:         state,
	}}

	var payment model.Payment
	if err := c.update(ctx, paymentPath(paymentID), version, actions, &payment); err != nil {
		return nil, fmt.Errorf("changing transaction state: %w", err)
	}
	return &payment, nil
}

func paymentPath(paymentID string) string {
	return pathPayments + "/" + url.PathEscape(paymentID)
}
