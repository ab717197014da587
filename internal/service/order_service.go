package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/admission"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/pkg/logger"
)

var tracer = otel.Tracer("github.com/d60-Lab/eazyeats/internal/service")

// OrderLine 下单请求中的一行
type OrderLine struct {
	ItemID string
	Qty    int
}

type CreateOrderInput struct {
	UserID            string
	Items             []OrderLine
	ScheduledPickupAt time.Time
	Instructions      string
}

// OrderService 订单生命周期
type OrderService interface {
	Create(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	ListMine(ctx context.Context, userID string) ([]*model.Order, error)
	// Get 本人或员工可见
	Get(ctx context.Context, p auth.Principal, id string) (*model.Order, error)
	// Track 按完整 ID 或 6 位短号查询，仅本人
	Track(ctx context.Context, p auth.Principal, idOrShort string) (*model.Order, []*model.OrderStatusHistory, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*model.Order, error)
}

type OrderDeps struct {
	Orders    repository.OrderRepository
	Menus     repository.MenuRepository
	Admission *admission.Controller
	Window    *schedule.Window
	Notifier  realtime.Notifier
	Now       func() time.Time
}

type orderService struct {
	orders    repository.OrderRepository
	menus     repository.MenuRepository
	admission *admission.Controller
	window    *schedule.Window
	notifier  realtime.Notifier
	now       func() time.Time
}

func NewOrderService(d OrderDeps) OrderService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &orderService{
		orders:    d.Orders,
		menus:     d.Menus,
		admission: d.Admission,
		window:    d.Window,
		notifier:  d.Notifier,
		now:       now,
	}
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create")
	defer span.End()

	now := s.now()
	pickup := in.ScheduledPickupAt
	if pickup.Before(now) {
		return nil, ErrPickupInPast
	}
	if !s.window.WithinHours(pickup) {
		return nil, ErrOutsideHours
	}
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	span.SetAttributes(attribute.String("slot", s.admission.SlotKey(pickup)))

	var order *model.Order
	err := s.admission.Admit(ctx, pickup, func(ctx context.Context) error {
		items, total, err := s.snapshot(ctx, in.Items)
		if err != nil {
			return err
		}
		order = &model.Order{
			UserID:            in.UserID,
			Items:             items,
			Total:             total,
			Status:            model.OrderStatusPlaced,
			PaymentStatus:     model.PaymentStatusPending,
			ScheduledPickupAt: pickup.UTC(),
			Instructions:      strings.TrimSpace(in.Instructions),
		}
		userID := in.UserID
		entry := &model.OrderStatusHistory{Status: model.OrderStatusPlaced, ByUserID: &userID, At: now.UTC()}
		if err := s.orders.CreateWithHistory(ctx, order, entry); err != nil {
			return errors.Wrap(err, "persist order")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info("order placed",
		zap.String("order", order.ID),
		zap.String("user", order.UserID),
		zap.Float64("total", order.Total),
		zap.Time("pickup", order.ScheduledPickupAt))
	s.notifier.OrderCreated(ctx, order)
	return order, nil
}

// snapshot 按当前菜单解析订单行，复制名称与价格
func (s *orderService) snapshot(ctx context.Context, lines []OrderLine) ([]model.OrderItem, float64, error) {
	menu, err := s.menus.Active(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, ErrMenuUnavailable
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "load menu")
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	found, err := s.menus.ItemsByIDs(ctx, menu.ID, ids)
	if err != nil {
		return nil, 0, errors.Wrap(err, "load items")
	}
	byID := make(map[string]*model.MenuItem, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	items := make([]model.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		it, ok := byID[l.ItemID]
		if !ok || !it.IsAvailable {
			return nil, 0, ErrInvalidItem
		}
		qty := l.Qty
		if qty < 1 {
			qty = 1
		}
		items = append(items, model.OrderItem{ItemID: it.ID, Name: it.Name, Price: it.Price, Qty: qty})
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(qty))))
	}
	return items, total.Round(2).InexactFloat64(), nil
}

func (s *orderService) ListMine(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *orderService) load(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (s *orderService) Get(ctx context.Context, p auth.Principal, id string) (*model.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID && !p.IsStaff() {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) Track(ctx context.Context, p auth.Principal, idOrShort string) (*model.Order, []*model.OrderStatusHistory, error) {
	var (
		order *model.Order
		err   error
	)
	key := strings.TrimSpace(idOrShort)
	switch {
	case isUUID(key):
		order, err = s.load(ctx, strings.ToLower(key))
	case len(key) == 6:
		order, err = s.orders.GetByShortID(ctx, p.UserID, strings.ToLower(key))
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrOrderNotFound
		}
	default:
		err = ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != p.UserID {
		return nil, nil, ErrForbidden
	}

	history, err := s.orders.History(ctx, order.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load history")
	}
	return order, history, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func (s *orderService) UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "order.UpdateStatus")
	defer span.End()

	if !p.IsStaff() {
		return nil, ErrForbidden
	}
	target, ok := model.ParseTargetStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", order.Status, target)
	}

	now := s.now().UTC()
	actor := p.UserID
	entry := &model.OrderStatusHistory{ByUserID: &actor, At: now}
	if err := s.orders.UpdateStatus(ctx, order.ID, order.Status, target, entry); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrStatusConflict
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "update status")
	}

	logger.Info("order status updated",
		zap.String("order", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(target)),
		zap.String("by", actor))
	order.Status = target
	order.UpdatedAt = now
	s.notifier.OrderStatusChanged(ctx, order)
	return order, nil
}
