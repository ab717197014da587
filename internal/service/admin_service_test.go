package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/service"
)

func TestAdminListOrders(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc := service.NewAdminService(h.orders, h.users, h.window)
	line := service.OrderLine{ItemID: h.item("Dosa"), Qty: 1}

	early := h.place(t, "2024-01-01T10:00:00Z", line)
	h.place(t, "2024-01-01T13:00:00Z", line)
	late := h.place(t, "2024-01-01T16:00:00Z", line)
	_, err := h.svc.UpdateStatus(ctx, principal(h.staff), early.ID, "accepted")
	require.NoError(t, err)

	all, err := svc.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	accepted, err := svc.ListOrders(ctx, repository.OrderFilter{Status: model.OrderStatusAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, early.ID, accepted[0].ID)

	from := pickup(t, "2024-01-01T15:00:00Z")
	window, err := svc.ListOrders(ctx, repository.OrderFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, late.ID, window[0].ID)

	limited, err := svc.ListOrders(ctx, repository.OrderFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	_, err = svc.ListOrders(ctx, repository.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestAdminMetrics(t *testing.T) {
	h := newHarness(t, 20).withMenu(t)
	ctx := context.Background()
	svc := service.NewAdminService(h.orders, h.users, h.window)
	line := service.OrderLine{ItemID: h.item("Dosa"), Qty: 1}

	o := h.place(t, "2024-01-01T10:00:00Z", line)
	h.place(t, "2024-01-01T11:00:00Z", line)
	_, err := h.svc.UpdateStatus(ctx, principal(h.staff), o.ID, "cancelled")
	require.NoError(t, err)

	m, err := svc.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.TotalOrders)
	assert.Equal(t, int64(2), m.TodayOrders)
	assert.Equal(t, int64(1), m.ByStatus[model.OrderStatusPlaced])
	assert.Equal(t, int64(1), m.ByStatus[model.OrderStatusCancelled])
}

func TestAdminSetRole(t *testing.T) {
	h := newHarness(t, 20)
	ctx := context.Background()
	svc := service.NewAdminService(h.orders, h.users, h.window)

	u, err := svc.SetRole(ctx, h.customer.ID, model.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, u.Role)

	_, err = svc.SetRole(ctx, h.customer.ID, "chef")
	assert.ErrorIs(t, err, service.ErrInvalidRole)
	_, err = svc.SetRole(ctx, "missing", model.RoleAdmin)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}
