package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/payment"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/pkg/logger"
)

// DefaultMinimumAmount 最低支付金额 ₹50（单位 paise）
const DefaultMinimumAmount = 5000

type PaymentService interface {
	// CreateCheckoutSession returns the hosted checkout URL for an order.
	CreateCheckoutSession(ctx context.Context, p auth.Principal, orderID string) (string, error)
	// HandleWebhook verifies and applies a provider event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentConfig struct {
	Currency       string
	MinimumAmount  int64
	FrontendOrigin string
}

type paymentService struct {
	orders   repository.OrderRepository
	gateway  payment.Gateway
	notifier realtime.Notifier
	cfg      PaymentConfig
	now      func() time.Time
}

// NewPaymentService 创建支付服务，gateway 为 nil 时所有调用返回 ErrPaymentsDisabled
func NewPaymentService(orders repository.OrderRepository, gateway payment.Gateway, notifier realtime.Notifier, cfg PaymentConfig) PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	if cfg.MinimumAmount <= 0 {
		cfg.MinimumAmount = DefaultMinimumAmount
	}
	return &paymentService{orders: orders, gateway: gateway, notifier: notifier, cfg: cfg, now: time.Now}
}

// AmountInMinorUnits 卢比转 paise，四舍五入
func AmountInMinorUnits(total float64) int64 {
	return decimal.NewFromFloat(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *paymentService) CreateCheckoutSession(ctx context.Context, p auth.Principal, orderID string) (string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	if order.UserID != p.UserID && !p.IsStaff() {
		return "", ErrForbidden
	}

	amount := AmountInMinorUnits(order.Total)
	if amount < s.cfg.MinimumAmount {
		return "", &AmountTooSmallError{Amount: amount, Minimum: s.cfg.MinimumAmount}
	}
	if s.gateway == nil {
		return "", ErrPaymentsDisabled
	}

	return s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		OrderID:     order.ID,
		ProductName: "Order #" + order.ShortID,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		SuccessURL:  s.cfg.FrontendOrigin + "/orders?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.cfg.FrontendOrigin + "/orders",
	})
}

// HandleWebhook 更新支付状态，与生命周期状态无关
// 未知订单与无关事件直接确认
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentsDisabled
	}
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if ev.Kind == payment.EventIgnored || ev.OrderID == "" {
		logger.Debug("payment event ignored", zap.String("event", ev.ID), zap.String("type", ev.Type))
		return nil
	}

	order, err := s.orders.GetByID(ctx, ev.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Warn("payment event for unknown order", zap.String("event", ev.ID), zap.String("order", ev.OrderID))
		return nil
	}
	if err != nil {
		return err
	}

	switch ev.Kind {
	case payment.EventCheckoutCompleted:
		paidAt := s.now().UTC()
		if err := s.orders.UpdatePayment(ctx, order.ID, model.PaymentStatusPaid, &paidAt); err != nil {
			return errors.Wrap(err, "mark paid")
		}
		order.PaymentStatus = model.PaymentStatusPaid
		order.PaidAt = &paidAt
	case payment.EventCheckoutFailed:
		// a late failure never downgrades a paid order
		if order.PaymentStatus == model.PaymentStatusPaid {
			return nil
		}
		if err := s.orders.UpdatePayment(ctx, order.ID, model.PaymentStatusFailed, nil); err != nil {
			return errors.Wrap(err, "mark failed")
		}
		order.PaymentStatus = model.PaymentStatusFailed
	}

	logger.Info("payment reconciled",
		zap.String("event", ev.ID),
		zap.String("order", order.ID),
		zap.String("payment_status", string(order.PaymentStatus)))
	s.notifier.OrderStatusChanged(ctx, order)
	return nil
}
