package payments

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

const testWebhookSecret = "whsec_test"

func newTestProcessor(t *testing.T, handler http.HandlerFunc) *StripeProcessor {
	t.Helper()

	var backends *stripe.Backends
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(srv.URL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}

	p, err := NewStripeProcessor("sk_test_123", testWebhookSecret, backends)
	require.NoError(t, err)
	return p
}

func signedPayload(t *testing.T, payload string, secret string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func TestNewStripeProcessor_RequiresKey(t *testing.T) {
	_, err := NewStripeProcessor("", "whsec", nil)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestCreateCheckoutSession_FormParams(t *testing.T) {
	p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())

		assert.Equal(t, "payment", r.Form.Get("mode"))
		assert.Equal(t, "card", r.Form.Get("payment_method_types[0]"))
		assert.Equal(t, "https://shop.test/checkout/success?session_id={CHECKOUT_SESSION_ID}&cart_id=cart-1", r.Form.Get("success_url"))
		assert.Equal(t, "buyer@example.com", r.Form.Get("customer_email"))
		assert.Equal(t, "cart-1", r.Form.Get("metadata[commercetools_cart_id]"))
		assert.Equal(t, "usd", r.Form.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "1999", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Classic Mug", r.Form.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "Red / M", r.Form.Get("line_items[0][price_data][product_data][description]"))
		assert.Equal(t, "2", r.Form.Get("line_items[0][quantity]"))
		assert.Empty(t, r.Form.Get("shipping_address_collection[allowed_countries][0]"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1","amount_total":3998,"currency":"usd"}`)
	})

	s, err := p.CreateCheckoutSession(t.Context(), SessionRequest{
		LineItems: []SessionLineItem{{
			Name:            "Classic Mug",
			Description:     "Red / M",
			UnitAmountCents: 1999,
			Currency:        "USD",
			Quantity:        2,
		}},
		SuccessURL:    "https://shop.test/checkout/success?session_id={CHECKOUT_SESSION_ID}&cart_id=cart-1",
		CancelURL:     "https://shop.test/checkout/cancel?cart_id=cart-1",
		CustomerEmail: "buyer@example.com",
		Metadata:      map[string]string{"commercetools_cart_id": "cart-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", s.URL)
	assert.Equal(t, int64(3998), s.AmountTotal)
}

func TestCreateCheckoutSession_ShippingCollection(t *testing.T) {
	p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "US", r.Form.Get("shipping_address_collection[allowed_countries][0]"))
		io.WriteString(w, `{"id":"cs_test_2","object":"checkout.session"}`)
	})

	_, err := p.CreateCheckoutSession(t.Context(), SessionRequest{
		LineItems:          []SessionLineItem{{Name: "Mug", UnitAmountCents: 100, Currency: "usd", Quantity: 1}},
		SuccessURL:         "https://shop.test/s",
		CancelURL:          "https://shop.test/c",
		CollectShippingFor: []string{"US"},
	})
	require.NoError(t, err)
}

func TestGetCheckoutSession(t *testing.T) {
	p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		io.WriteString(w, `{
			"id":"cs_test_1","object":"checkout.session","status":"complete","payment_status":"paid",
			"customer_details":{"email":"buyer@example.com"},
			"customer":"cus_1","payment_intent":"pi_1",
			"amount_total":4200,"currency":"usd",
			"metadata":{"commercetools_cart_id":"cart-1","commercetools_cart_version":"3"}
		}`)
	})

	s, err := p.GetCheckoutSession(t.Context(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", s.PaymentStatus)
	assert.Equal(t, "buyer@example.com", s.CustomerEmail)
	assert.Equal(t, "cus_1", s.CustomerID)
	assert.Equal(t, "pi_1", s.PaymentIntentID)
	assert.Equal(t, "cart-1", s.Metadata["commercetools_cart_id"])
}

func TestGetCheckoutSession_NotFound(t *testing.T) {
	p := newTestProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`)
	})

	_, err := p.GetCheckoutSession(t.Context(), "cs_missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	p := newTestProcessor(t, nil)

	header, payload := signedPayload(t, `{
		"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{
			"id":"cs_1","object":"checkout.session","payment_intent":"pi_1","customer":"cus_1",
			"amount_total":4200,"currency":"usd",
			"metadata":{"commercetools_cart_id":"cart-1","commercetools_cart_version":"4"}
		}}
	}`, testWebhookSecret)

	evt, err := p.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, evt.Type)
	require.NotNil(t, evt.Session)
	assert.Equal(t, "pi_1", evt.Session.PaymentIntentID)
	assert.Equal(t, int64(4200), evt.Session.AmountTotal)
	assert.Equal(t, "4", evt.Session.Metadata["commercetools_cart_version"])
}

func TestParseWebhook_PaymentFailed(t *testing.T) {
	p := newTestProcessor(t, nil)

	header, payload := signedPayload(t, `{
		"id":"evt_2","object":"event","type":"payment_intent.payment_failed",
		"data":{"object":{"id":"pi_9","object":"payment_intent","last_payment_error":{"message":"Your card was declined."}}}
	}`, testWebhookSecret)

	evt, err := p.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "pi_9", evt.PaymentIntentID)
	assert.Equal(t, "Your card was declined.", evt.FailureMessage)
}

func TestParseWebhook_InvalidSignature(t *testing.T) {
	p := newTestProcessor(t, nil)

	tests := []struct {
		name    string
		header  string
		payload []byte
	}{
		{"wrong secret", "", nil},
		{"garbage header", "t=1,v1=deadbeef", []byte(`{"id":"evt_1","object":"event"}`)},
	}
	header, payload := signedPayload(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed"}`, "whsec_other")
	tests[0].header, tests[0].payload = header, payload

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseWebhook(tt.payload, tt.header)
			assert.True(t, errors.Is(err, ErrInvalidSignature), "err = %v", err)
		})
	}
}

func TestParseWebhook_UndecodableObject(t *testing.T) {
	p := newTestProcessor(t, nil)

	header, payload := signedPayload(t, `{
		"id":"evt_3","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_3","object":"checkout.session","amount_total":"not-a-number"}}
	}`, testWebhookSecret)

	evt, err := p.ParseWebhook(payload, header)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndecodableEvent)
	assert.False(t, errors.Is(err, ErrInvalidSignature), "err = %v", err)
	require.NotNil(t, evt)
	assert.Equal(t, "evt_3", evt.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, evt.Type)
	assert.Nil(t, evt.Session)
}
