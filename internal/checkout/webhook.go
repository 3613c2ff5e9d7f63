package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"storefront/internal/model"
	"storefront/internal/payments"
)

var errMissingCartMetadata = errors.New("session metadata has no usable cart id or version")

// HandleWebhook verifies and processes a processor webhook. Each event id is
// claimed once in the ledger; redeliveries of a claimed event are
// acknowledged without side effects. Fulfillment failures are logged and the
// delivery still acknowledged, so the processor does not redeliver; the
// claim is released so a manual resend of the event can retry. A verified
// event whose object does not decode is logged and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if signature == "" {
		return badRequest("Missing signature", "")
	}
	if s.processor == nil {
		return failed("Webhook handler failed", model.NewConfigurationError("payment processor is not configured"))
	}

	event, err := s.processor.ParseWebhook(payload, signature)
	if errors.Is(err, payments.ErrUndecodableEvent) {
		attrs := []any{slog.String("error", err.Error())}
		if event != nil {
			attrs = append(attrs, slog.String("event_id", event.ID), slog.String("event_type", event.Type))
		}
		s.logger.ErrorContext(ctx, "verified webhook could not be decoded", attrs...)
		return nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "webhook rejected", slog.String("error", err.Error()))
		return &Error{Status: 400, Title: "Invalid signature", Err: err}
	}

	log := s.logger.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case payments.EventCheckoutSessionCompleted:
		claimed, err := s.ledger.Claim(ctx, event.ID)
		if err != nil {
			log.ErrorContext(ctx, "webhook ledger claim failed, processing anyway", slog.String("error", err.Error()))
			claimed = true
		}
		if !claimed {
			log.InfoContext(ctx, "duplicate webhook delivery skipped")
			return nil
		}
		if event.Session == nil {
			log.WarnContext(ctx, "completed event without session")
			return nil
		}
		if err := s.fulfill(ctx, event.Session, log); err != nil {
			if errors.Is(err, errMissingCartMetadata) {
				log.ErrorContext(ctx, "order not created", slog.String("error", err.Error()))
				return nil
			}
			log.ErrorContext(ctx, "order fulfillment failed",
				slog.String("session_id", event.Session.ID),
				slog.String("error", err.Error()),
			)
			if rerr := s.ledger.Release(ctx, event.ID); rerr != nil {
				log.ErrorContext(ctx, "webhook ledger release failed", slog.String("error", rerr.Error()))
			}
		}

	case payments.EventPaymentIntentFailed:
		log.WarnContext(ctx, "payment failed",
			slog.String("payment_intent_id", event.PaymentIntentID),
			slog.String("reason", event.FailureMessage),
		)

	default:
		log.DebugContext(ctx, "webhook event ignored")
	}
	return nil
}

// fulfill records the payment on the backend cart and creates the order.
// The cart is re-read so the mutations use its current version.
// An order already referencing the cart ends fulfillment early. A cart that
// already carries a payment (an earlier attempt failed at order creation)
// goes straight to the order.
func (s *Service) fulfill(ctx context.Context, session *payments.Session, log *slog.Logger) error {
	cartID := session.Metadata[MetaCartID]
	version, err := strconv.ParseInt(session.Metadata[MetaCartVersion], 10, 64)
	if cartID == "" || err != nil {
		return errMissingCartMetadata
	}

	existing, err := s.commerce.FindOrderByCartID(ctx, cartID)
	if err != nil {
		return fmt.Errorf("checking existing order: %w", err)
	}
	if existing != nil {
		log.InfoContext(ctx, "order already exists for cart",
			slog.String("cart_id", cartID),
			slog.String("order_id", existing.ID),
		)
		return nil
	}

	cart, err := s.commerce.GetCart(ctx, cartID)
	if err != nil {
		return fmt.Errorf("fetching cart: %w", err)
	}
	if cart.Version != version {
		log.DebugContext(ctx, "cart moved since session creation",
			slog.String("cart_id", cartID),
			slog.Int64("session_version", version),
			slog.Int64("current_version", cart.Version),
		)
	}

	if cart.PaymentInfo != nil && len(cart.PaymentInfo.Payments) > 0 {
		paymentID := cart.PaymentInfo.Payments[len(cart.PaymentInfo.Payments)-1].ID
		log.InfoContext(ctx, "cart already has a payment, creating order only",
			slog.String("cart_id", cartID),
			slog.String("payment_id", paymentID),
		)
		return s.createOrder(ctx, session, cart, paymentID, log)
	}

	currency := strings.ToUpper(session.Currency)
	payment, err := s.commerce.CreatePayment(ctx, model.PaymentDraft{
		AmountCents: session.AmountTotal,
		Currency:    currency,
		Method:      "Stripe",
		Interface:   "stripe",
		CustomerID:  session.Metadata[MetaCustomerID],
		InterfaceID: session.PaymentIntentID,
	})
	if err != nil {
		return fmt.Errorf("creating payment: %w", err)
	}

	payment, err = s.commerce.AddTransaction(ctx, payment.ID, payment.Version, model.TransactionDraft{
		Type:          model.TransactionCharge,
		AmountCents:   session.AmountTotal,
		Currency:      currency,
		State:         model.TransactionPending,
		InteractionID: session.PaymentIntentID,
	})
	if err != nil {
		return fmt.Errorf("adding charge transaction: %w", err)
	}

	if session.PaymentStatus != "unpaid" && len(payment.Transactions) > 0 {
		tx := payment.Transactions[len(payment.Transactions)-1]
		if payment, err = s.commerce.ChangeTransactionState(ctx, payment.ID, payment.Version, tx.ID, model.TransactionSuccess); err != nil {
			return fmt.Errorf("settling charge transaction: %w", err)
		}
	}

	cart, err = s.commerce.AddPaymentToCart(ctx, cart.ID, cart.Version, payment.ID)
	if err != nil {
		return fmt.Errorf("attaching payment: %w", err)
	}

	return s.createOrder(ctx, session, cart, payment.ID, log)
}

func (s *Service) createOrder(ctx context.Context, session *payments.Session, cart *model.Cart, paymentID string, log *slog.Logger) error {
	order, err := s.commerce.CreateOrderFromCart(ctx, cart.ID, cart.Version, model.OrderOptions{})
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	log.InfoContext(ctx, "order created from checkout session",
		slog.String("session_id", session.ID),
		slog.String("cart_id", cart.ID),
		slog.String("payment_id", paymentID),
		slog.String("order_id", order.ID),
	)
	return nil
}
