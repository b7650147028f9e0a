package billing

import (
	"net/http"
	"testing"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testWebhookSecret = "whsec_test"

func signedStripeHeader(t *testing.T, payload string) http.Header {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	h := http.Header{}
	h.Set("Stripe-Signature", signed.Header)
	return h
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	g := NewStripeGateway("sk_test", testWebhookSecret)

	t.Run("succeeded", func(t *testing.T) {
		payload := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"order_id":"SUB-1"}}}}`
		event, err := g.ParseWebhook([]byte(payload), signedStripeHeader(t, payload))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, "SUB-1", event.OrderID)
		assert.Equal(t, "pi_1", event.TransactionID)
		assert.Equal(t, domain.PaymentStatusCompleted, event.Status)
	})

	t.Run("failed carries reason", func(t *testing.T) {
		payload := `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","object":"payment_intent","metadata":{"order_id":"SUB-2"},"last_payment_error":{"message":"Your card was declined."}}}}`
		event, err := g.ParseWebhook([]byte(payload), signedStripeHeader(t, payload))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, domain.PaymentStatusFailed, event.Status)
		assert.Equal(t, "Your card was declined.", event.FailureReason)
	})

	t.Run("foreign intent ignored", func(t *testing.T) {
		payload := `{"id":"evt_3","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_3","object":"payment_intent","metadata":{}}}}`
		event, err := g.ParseWebhook([]byte(payload), signedStripeHeader(t, payload))
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("unhandled type ignored", func(t *testing.T) {
		payload := `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`
		event, err := g.ParseWebhook([]byte(payload), signedStripeHeader(t, payload))
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("bad signature", func(t *testing.T) {
		payload := `{"id":"evt_5","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`
		h := http.Header{}
		h.Set("Stripe-Signature", "t=1,v1=deadbeef")
		_, err := g.ParseWebhook([]byte(payload), h)
		assert.Error(t, err)
	})
}
