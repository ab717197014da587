package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/payment"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/service"
)

const webhookSecret = "whsec_test"

// recordingGateway verifies webhooks for real and records checkout requests.
type recordingGateway struct {
	*payment.StripeGateway
	got *payment.CheckoutRequest
}

func (g *recordingGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	g.got = &req
	return "https://checkout.test/" + req.OrderID, nil
}

func newPayments(h *harness) (service.PaymentService, *recordingGateway) {
	gw := &recordingGateway{StripeGateway: payment.NewStripeGateway("sk_test", webhookSecret)}
	svc := service.NewPaymentService(h.orders, gw, h.notifier, service.PaymentConfig{
		Currency:       "inr",
		MinimumAmount:  5000,
		FrontendOrigin: "http://localhost:5173",
	})
	return svc, gw
}

func signedEvent(typ, orderID string) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"id":"evt_test","object":"event","type":%q,"data":{"object":{"id":"cs_test","object":"checkout.session","metadata":{"orderId":%q}}}}`, typ, orderID))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: webhookSecret})
	return body, signed.Header
}

func TestAmountInMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4000), service.AmountInMinorUnits(40))
	assert.Equal(t, int64(5000), service.AmountInMinorUnits(50))
	assert.Equal(t, int64(1999), service.AmountInMinorUnits(19.99))
	assert.Equal(t, int64(1001), service.AmountInMinorUnits(10.005))
}

func TestCheckoutRejectsSmallAmount(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	svc, gw := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Dosa"), Qty: 1})
	require.Equal(t, 40.0, o.Total)

	_, err := svc.CreateCheckoutSession(context.Background(), principal(h.customer), o.ID)
	require.ErrorIs(t, err, service.ErrAmountTooSmall)
	var small *service.AmountTooSmallError
	require.True(t, errors.As(err, &small))
	assert.Equal(t, int64(4000), small.Amount)
	assert.Equal(t, int64(5000), small.Minimum)
	assert.Nil(t, gw.got)
}

func TestCheckoutSessionRequest(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	svc, gw := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 2})

	url, err := svc.CreateCheckoutSession(context.Background(), principal(h.customer), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/"+o.ID, url)

	require.NotNil(t, gw.got)
	assert.Equal(t, int64(24000), gw.got.Amount)
	assert.Equal(t, "inr", gw.got.Currency)
	assert.Equal(t, o.ID, gw.got.OrderID)
	assert.Equal(t, "Order #"+o.ShortID, gw.got.ProductName)
	assert.Contains(t, gw.got.SuccessURL, "http://localhost:5173/")
	assert.Contains(t, gw.got.CancelURL, "http://localhost:5173/")
}

func TestCheckoutAccessAndConfig(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc, _ := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})

	stranger := principal(h.customer)
	stranger.UserID = "someone-else"
	_, err := svc.CreateCheckoutSession(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.CreateCheckoutSession(ctx, principal(h.customer), "missing")
	assert.ErrorIs(t, err, service.ErrOrderNotFound)

	disabled := service.NewPaymentService(h.orders, nil, h.notifier, service.PaymentConfig{})
	_, err = disabled.CreateCheckoutSession(ctx, principal(h.customer), o.ID)
	assert.ErrorIs(t, err, service.ErrPaymentsDisabled)
}

func TestWebhookMarksPaidWithoutChangingStatus(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc, _ := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})
	_, err := h.svc.UpdateStatus(ctx, principal(h.staff), o.ID, "accepted")
	require.NoError(t, err)
	sub := subscribe(h, realtime.UserTopic(h.customer.ID))

	body, sig := signedEvent("checkout.session.completed", o.ID)
	require.NoError(t, svc.HandleWebhook(ctx, body, sig))

	stored, err := h.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.PaidAt)
	assert.Equal(t, model.OrderStatusAccepted, stored.Status)

	frames := drain(t, sub)
	require.Len(t, frames, 1)
	var d statusData
	require.NoError(t, json.Unmarshal(frames[0].Data, &d))
	assert.Equal(t, model.OrderStatusAccepted, d.Status)
}

func TestWebhookBadSignatureLeavesOrderUnchanged(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc, _ := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})
	sub := subscribe(h, realtime.OrderTopic(o.ID))

	body, _ := signedEvent("checkout.session.completed", o.ID)
	err := svc.HandleWebhook(ctx, body, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	err = svc.HandleWebhook(ctx, body, "")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	stored, err := h.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.PaidAt)
	assert.Equal(t, model.OrderStatusPlaced, stored.Status)
	assert.Empty(t, drain(t, sub))
}

func TestWebhookIgnoresLifecycleStatus(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc, _ := newPayments(h)

	placed := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})
	cancelled := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})
	_, err := h.svc.UpdateStatus(ctx, principal(h.staff), cancelled.ID, "cancelled")
	require.NoError(t, err)

	for _, o := range []*model.Order{placed, cancelled} {
		body, sig := signedEvent("checkout.session.completed", o.ID)
		require.NoError(t, svc.HandleWebhook(ctx, body, sig))
	}

	p, err := h.orders.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, p.PaymentStatus)
	assert.Equal(t, model.OrderStatusPlaced, p.Status)

	c, err := h.orders.GetByID(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, c.PaymentStatus)
	assert.Equal(t, model.OrderStatusCancelled, c.Status)
}

func TestWebhookFailedPayment(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc, _ := newPayments(h)
	o := h.place(t, "2024-01-01T12:00:00Z", service.OrderLine{ItemID: h.item("Thali"), Qty: 1})

	body, sig := signedEvent("checkout.session.async_payment_failed", o.ID)
	require.NoError(t, svc.HandleWebhook(ctx, body, sig))
	stored, err := h.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, stored.PaymentStatus)

	body, sig = signedEvent("checkout.session.completed", o.ID)
	require.NoError(t, svc.HandleWebhook(ctx, body, sig))

	// 已支付后迟到的失败事件不降级
	body, sig = signedEvent("checkout.session.async_payment_failed", o.ID)
	require.NoError(t, svc.HandleWebhook(ctx, body, sig))
	stored, err = h.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, stored.PaymentStatus)
}

func TestWebhookAcknowledgesUnknownOrdersAndEvents(t *testing.T) {
	h := newHarness(t, 20)
	svc, _ := newPayments(h)
	ctx := context.Background()

	body, sig := signedEvent("checkout.session.completed", "does-not-exist")
	assert.NoError(t, svc.HandleWebhook(ctx, body, sig))

	body, sig = signedEvent("customer.created", "")
	assert.NoError(t, svc.HandleWebhook(ctx, body, sig))
}
