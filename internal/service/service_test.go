package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/eazyeats/internal/admission"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/internal/testutil"
)

// 固定时钟：2024-01-01 08:00 UTC，营业前一小时
var testNow = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	db       *gorm.DB
	orders   repository.OrderRepository
	menus    repository.MenuRepository
	users    repository.UserRepository
	hub      *realtime.Hub
	notifier *realtime.OrderNotifier
	window   *schedule.Window
	svc      service.OrderService
	menu     *model.Menu

	customer *model.User
	staff    *model.User
}

func newHarness(t *testing.T, capacity int) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		db:     db,
		orders: repository.NewOrderRepository(db),
		menus:  repository.NewMenuRepository(db),
		users:  repository.NewUserRepository(db),
		hub:    realtime.NewHub(),
		window: schedule.NewWindow(9, 18, 15, "UTC"),
	}
	h.notifier = realtime.NewOrderNotifier(h.hub)
	h.svc = service.NewOrderService(service.OrderDeps{
		Orders:    h.orders,
		Menus:     h.menus,
		Admission: admission.NewController(h.window, admission.NewMemoryCounter(), capacity),
		Window:    h.window,
		Notifier:  h.notifier,
		Now:       func() time.Time { return testNow },
	})
	h.customer = testutil.SeedUser(t, db, "asha@example.com", model.RoleUser)
	h.staff = testutil.SeedUser(t, db, "kitchen@example.com", model.RoleStaff)
	return h
}

// withMenu seeds Dosa ₹40, Thali ₹120 and an unavailable Biryani ₹150.
func (h *harness) withMenu(t *testing.T) *harness {
	t.Helper()
	h.menu = testutil.SeedMenu(t, h.db,
		model.MenuItem{Name: "Dosa", Price: 40, IsAvailable: true},
		model.MenuItem{Name: "Thali", Price: 120, IsAvailable: true},
		model.MenuItem{Name: "Biryani", Price: 150, IsAvailable: false},
	)
	return h
}

func (h *harness) item(name string) string {
	for _, it := range h.menu.Items {
		if it.Name == name {
			return it.ID
		}
	}
	panic("no item " + name)
}

func principal(u *model.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, Name: u.Name}
}

func pickup(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func (h *harness) place(t *testing.T, at string, lines ...service.OrderLine) *model.Order {
	t.Helper()
	o, err := h.svc.Create(context.Background(), service.CreateOrderInput{
		UserID:            h.customer.ID,
		Items:             lines,
		ScheduledPickupAt: pickup(t, at),
	})
	require.NoError(t, err)
	return o
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type statusData struct {
	OrderID   string            `json:"orderId"`
	Status    model.OrderStatus `json:"status"`
	UpdatedAt string            `json:"updatedAt"`
}

func subscribe(h *harness, topic string) *realtime.Client {
	c := realtime.NewClient(16)
	h.hub.Join(c, topic)
	return c
}

func drain(t *testing.T, c *realtime.Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case b := <-c.Messages():
			var f frame
			require.NoError(t, json.Unmarshal(b, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}
