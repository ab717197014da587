package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus 订单生命周期状态
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses 按生命周期顺序列出全部状态
var OrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusPickedUp,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:    {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted:  {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusPickedUp, OrderStatusCancelled},
}

// ParseTargetStatus 只接受可作为更新目标的状态，placed 是初始状态
func ParseTargetStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case OrderStatusAccepted, OrderStatusPreparing, OrderStatusReady, OrderStatusPickedUp, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

// Valid 是否为六种生命周期状态之一
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal picked_up 与 cancelled 之后不允许再流转
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPickedUp || s == OrderStatusCancelled
}

// CanTransitionTo 按状态表校验流转
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PaymentStatus 支付状态，独立于生命周期
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// OrderItem 下单时的菜品快照
type OrderItem struct {
	ItemID string  `json:"itemId"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Qty    int     `json:"qty"`
}

// Order 预约取餐订单
type Order struct {
	ID                string                        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ShortID           string                        `json:"shortId" gorm:"type:varchar(6);index:idx_orders_user_short"`
	UserID            string                        `json:"userId" gorm:"type:varchar(36);not null;index:idx_orders_user_created;index:idx_orders_user_short"`
	Items             datatypes.JSONSlice[OrderItem] `json:"items" gorm:"not null"`
	Total             float64                       `json:"total" gorm:"type:decimal(10,2);not null"`
	Status            OrderStatus                   `json:"status" gorm:"type:varchar(16);index;not null"`
	PaymentStatus     PaymentStatus                 `json:"paymentStatus" gorm:"type:varchar(16);not null"`
	PaidAt            *time.Time                    `json:"paidAt,omitempty"`
	ScheduledPickupAt time.Time                     `json:"scheduledPickupAt" gorm:"index;not null"`
	Instructions      string                        `json:"instructions,omitempty" gorm:"type:text"`
	CreatedAt         time.Time                     `json:"createdAt" gorm:"index:idx_orders_user_created"`
	UpdatedAt         time.Time                     `json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

// ShortIDOf 取 id 末六位
func ShortIDOf(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.ShortID = ShortIDOf(o.ID)
	return nil
}

// OrderStatusHistory 状态流水，只追加
type OrderStatusHistory struct {
	ID       uint        `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID  string      `json:"orderId" gorm:"type:varchar(36);not null;index"`
	Status   OrderStatus `json:"status" gorm:"type:varchar(16);not null"`
	ByUserID *string     `json:"byUserId,omitempty" gorm:"type:varchar(36)"`
	At       time.Time   `json:"at" gorm:"not null"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
