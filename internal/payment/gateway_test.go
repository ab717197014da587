package payment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret}).Header
}

func sessionEvent(typ, orderID string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":{"id":"cs_1","object":"checkout.session","metadata":{"orderId":%q}}}}`, typ, orderID))
}

func TestParseWebhookCompleted(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	body := sessionEvent("checkout.session.completed", "order-1")

	ev, err := g.ParseWebhook(body, sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Kind)
	assert.Equal(t, "order-1", ev.OrderID)
	assert.Equal(t, "evt_1", ev.ID)
}

func TestParseWebhookFailedAndIgnored(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)

	body := sessionEvent("checkout.session.async_payment_failed", "order-2")
	ev, err := g.ParseWebhook(body, sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutFailed, ev.Kind)
	assert.Equal(t, "order-2", ev.OrderID)

	body = sessionEvent("customer.created", "order-3")
	ev, err = g.ParseWebhook(body, sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, ev.Kind)
	assert.Empty(t, ev.OrderID)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	body := sessionEvent("checkout.session.completed", "order-1")

	_, err := g.ParseWebhook(body, sign(body, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseWebhook(body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := sessionEvent("checkout.session.completed", "order-9")
	_, err = g.ParseWebhook(tampered, sign(body, testSecret))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
