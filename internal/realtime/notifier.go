package realtime

import (
	"context"
	"time"

	"github.com/d60-Lab/eazyeats/internal/model"
)

// StaffTopic 员工主题，接收所有新订单与状态变更
const StaffTopic = "orders"

const (
	EventNewOrder           = "new_order"
	EventOrderStatusUpdated = "order_status_updated"
	EventOrderUpdated       = "order_updated"
)

func UserTopic(userID string) string   { return "user:" + userID }
func OrderTopic(orderID string) string { return "order:" + orderID }

type NewOrderPayload struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
}

type StatusUpdatedPayload struct {
	OrderID   string            `json:"orderId"`
	Status    model.OrderStatus `json:"status"`
	UpdatedAt string            `json:"updatedAt"`
}

type OrderUpdatedPayload struct {
	OrderID string            `json:"orderId"`
	Status  model.OrderStatus `json:"status"`
}

// Notifier 订单事件通知接口
type Notifier interface {
	OrderCreated(ctx context.Context, o *model.Order)
	OrderStatusChanged(ctx context.Context, o *model.Order)
}

// OrderNotifier 把订单事件映射到主题
type OrderNotifier struct {
	bus Broadcaster
	now func() time.Time
}

func NewOrderNotifier(bus Broadcaster) *OrderNotifier {
	return &OrderNotifier{bus: bus, now: time.Now}
}

// OrderCreated 新订单只推送给员工频道
func (n *OrderNotifier) OrderCreated(ctx context.Context, o *model.Order) {
	n.bus.Broadcast(ctx, StaffTopic, Event{
		Name: EventNewOrder,
		Data: NewOrderPayload{OrderID: o.ID, Total: o.Total},
	})
}

// OrderStatusChanged 推送给下单人、订单主题与员工
func (n *OrderNotifier) OrderStatusChanged(ctx context.Context, o *model.Order) {
	payload := StatusUpdatedPayload{
		OrderID:   o.ID,
		Status:    o.Status,
		UpdatedAt: n.now().UTC().Format(time.RFC3339Nano),
	}
	n.bus.Broadcast(ctx, UserTopic(o.UserID), Event{Name: EventOrderStatusUpdated, Data: payload})
	n.bus.Broadcast(ctx, OrderTopic(o.ID), Event{Name: EventOrderStatusUpdated, Data: payload})
	n.bus.Broadcast(ctx, StaffTopic, Event{
		Name: EventOrderUpdated,
		Data: OrderUpdatedPayload{OrderID: o.ID, Status: o.Status},
	})
}
