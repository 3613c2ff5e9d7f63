// Package payments wraps the payment processor: hosted checkout sessions,
// webhook verification and a ledger of handled webhook events.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"

	"storefront/internal/model"
)

// Webhook event types the storefront acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUndecodableEvent is returned for a verified event whose object does
	// not decode. The event's ID and Type are still returned.
	ErrUndecodableEvent = errors.New("undecodable webhook event")
)

// SessionLineItem is one priced line of a checkout session.
type SessionLineItem struct {
	Name            string
	Description     string
	Images          []string
	UnitAmountCents int64
	Currency        string // ISO 4217, any case
	Quantity        int64
}

// SessionRequest describes a processor-hosted checkout session.
type SessionRequest struct {
	LineItems     []SessionLineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string

	// CollectShippingFor enables shipping address collection on the hosted
	// page for these countries. Empty disables collection.
	CollectShippingFor []string
}

// Session is the processor-side checkout session.
type Session struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Status          string            `json:"status"`
	PaymentStatus   string            `json:"paymentStatus"`
	CustomerEmail   string            `json:"customerEmail"`
	CustomerID      string            `json:"customerId"`
	PaymentIntentID string            `json:"paymentIntentId"`
	AmountTotal     int64             `json:"amountTotal"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
}

// Event is a verified webhook event.
type Event struct {
	ID   string
	Type string

	// Session is set for checkout.session.* events.
	Session *Session

	// PaymentIntentID and FailureMessage are set for payment_intent.* events.
	PaymentIntentID string
	FailureMessage  string
}

// StripeProcessor talks to Stripe through a per-instance API client.
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor creates a processor. backends may be nil for the
// production endpoints; tests point them at a fake server.
func NewStripeProcessor(secretKey, webhookSecret string, backends *stripe.Backends) (*StripeProcessor, error) {
	if secretKey == "" {
		return nil, model.NewConfigurationError("STRIPE_SECRET_KEY is not set")
	}
	return &StripeProcessor{
		api:           client.New(secretKey, backends),
		webhookSecret: webhookSecret,
	}, nil
}

// CreateCheckoutSession opens a card payment session in payment mode.
func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if len(req.CollectShippingFor) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.CollectShippingFor),
		}
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		if len(item.Images) > 0 {
			product.Images = stripe.StringSlice(item.Images)
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(item.Currency)),
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toSession(s), nil
}

// GetCheckoutSession retrieves a session by id.
func (p *StripeProcessor) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return toSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Verification failures return ErrInvalidSignature. A verified event whose
// object cannot be decoded returns the event with ErrUndecodableEvent.
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}

	switch {
	case strings.HasPrefix(out.Type, "checkout.session."):
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return out, fmt.Errorf("%w: decoding checkout session: %v", ErrUndecodableEvent, err)
		}
		out.Session = toSession(&s)
	case strings.HasPrefix(out.Type, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("%w: decoding payment intent: %v", ErrUndecodableEvent, err)
		}
		out.PaymentIntentID = pi.ID
		if pi.LastPaymentError != nil {
			out.FailureMessage = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if out.CustomerEmail == "" && s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// wrapStripeError maps processor errors to model.APIError.
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.HTTPStatusCode {
		case 401, 403:
			return model.NewUnauthorizedError("Stripe authentication failed")
		case 404:
			return model.NewNotFoundError("checkout session")
		case 429:
			return model.NewRateLimitError("Stripe")
		case 400:
			return model.NewValidationError("payment", stripeErr.Msg)
		}
	}
	return model.NewUpstreamError("Stripe", err)
}
