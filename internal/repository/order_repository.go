package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/eazyeats/internal/model"
)

// OrderFilter 后台订单查询条件，From/To 限定取餐时间
type OrderFilter struct {
	Status model.OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
}

// OrderStats 订单统计
type OrderStats struct {
	Total    int64
	Since    int64
	ByStatus map[model.OrderStatus]int64
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// CreateWithHistory 在一个事务内写入订单与首条状态流水
	CreateWithHistory(ctx context.Context, order *model.Order, entry *model.OrderStatusHistory) error

	GetByID(ctx context.Context, id string) (*model.Order, error)

	// GetByShortID 返回该用户最近一笔短号匹配的订单
	GetByShortID(ctx context.Context, userID, shortID string) (*model.Order, error)

	// ListByUser 按创建时间倒序
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)

	List(ctx context.Context, filter OrderFilter) ([]*model.Order, error)

	// History 按时间正序
	History(ctx context.Context, orderID string) ([]*model.OrderStatusHistory, error)

	// UpdateStatus 仅当当前状态仍为 from 时更新，并追加流水
	UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus, entry *model.OrderStatusHistory) error

	UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, paidAt *time.Time) error

	// Stats 全量计数、since 之后创建的计数与按状态计数
	Stats(ctx context.Context, since time.Time) (*OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithHistory(ctx context.Context, order *model.Order, entry *model.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return translate(err)
		}
		entry.OrderID = order.ID
		return translate(tx.Create(entry).Error)
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) GetByShortID(ctx context.Context, userID, shortID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND short_id = ?", userID, shortID).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, f OrderFilter) ([]*model.Order, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("scheduled_pickup_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("scheduled_pickup_at <= ?", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var orders []*model.Order
	err := q.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) History(ctx context.Context, orderID string) ([]*model.OrderStatusHistory, error) {
	var entries []*model.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from, to model.OrderStatus, entry *model.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]any{"status": to, "updated_at": entry.At})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		entry.OrderID = id
		entry.Status = to
		return tx.Create(entry).Error
	})
}

func (r *orderRepository) UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, paidAt *time.Time) error {
	updates := map[string]any{"payment_status": status, "updated_at": time.Now().UTC()}
	if paidAt != nil {
		updates["paid_at"] = paidAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) Stats(ctx context.Context, since time.Time) (*OrderStats, error) {
	stats := &OrderStats{ByStatus: make(map[model.OrderStatus]int64)}
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Order{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Order{}).Where("created_at >= ?", since.UTC()).Count(&stats.Since).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status model.OrderStatus
		N      int64
	}
	if err := db.Model(&model.Order{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.N
	}
	return stats, nil
}
