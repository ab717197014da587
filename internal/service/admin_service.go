package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/schedule"
)

const (
	DefaultAdminListLimit = 50
	MaxAdminListLimit     = 200
)

// Metrics 后台看板
type Metrics struct {
	TotalOrders int64                       `json:"totalOrders"`
	TodayOrders int64                       `json:"todayOrders"`
	ByStatus    map[model.OrderStatus]int64 `json:"byStatus"`
}

type AdminService interface {
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*model.Order, error)
	Metrics(ctx context.Context) (*Metrics, error)
	SetRole(ctx context.Context, userID string, role model.Role) (*model.User, error)
}

type adminService struct {
	orders repository.OrderRepository
	users  repository.UserRepository
	window *schedule.Window
	now    func() time.Time
}

func NewAdminService(orders repository.OrderRepository, users repository.UserRepository, window *schedule.Window) AdminService {
	return &adminService{orders: orders, users: users, window: window, now: time.Now}
}

func (s *adminService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]*model.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if f.Limit <= 0 {
		f.Limit = DefaultAdminListLimit
	}
	if f.Limit > MaxAdminListLimit {
		f.Limit = MaxAdminListLimit
	}
	return s.orders.List(ctx, f)
}

// Metrics 从食堂时区当天零点起统计订单
func (s *adminService) Metrics(ctx context.Context) (*Metrics, error) {
	stats, err := s.orders.Stats(ctx, s.window.StartOfDay(s.now()))
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	return &Metrics{TotalOrders: stats.Total, TodayOrders: stats.Since, ByStatus: stats.ByStatus}, nil
}

func (s *adminService) SetRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	u, err := s.users.UpdateRole(ctx, userID, role)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
