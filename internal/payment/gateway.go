// Package payment 对接托管收银台
package payment

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventKind 需要处理的支付事件类型
type EventKind int

const (
	EventIgnored EventKind = iota
	EventCheckoutCompleted
	EventCheckoutFailed
)

// Event 已验签的回调事件
type Event struct {
	ID      string
	Type    string
	Kind    EventKind
	OrderID string
}

// CheckoutRequest 收银台请求，金额单位为最小货币单位
type CheckoutRequest struct {
	OrderID     string
	ProductName string
	Amount      int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	// ParseWebhook verifies signature over payload before decoding it.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// StripeGateway 基于 Stripe Checkout 的 Gateway 实现
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil), webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ProductName),
				},
				UnitAmount: stripe.Int64(req.Amount),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("orderId", req.OrderID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return sess.URL, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSignature, err.Error())
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		out.Kind = EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		out.Kind = EventCheckoutFailed
	default:
		return out, nil
	}

	if ev.Data != nil {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, errors.Wrap(err, "decode checkout session")
		}
		out.OrderID = sess.Metadata["orderId"]
	}
	return out, nil
}
