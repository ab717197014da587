package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/config"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/media"
	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/logger"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

// ReadyCheck 就绪探针中的一个依赖
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler HTTP 处理器，持有各领域服务
type Handler struct {
	orderService   service.OrderService
	paymentService service.PaymentService
	menuService    service.MenuService
	authService    service.AuthService
	adminService   service.AdminService
	uploader       media.Uploader
	tokens         *auth.Tokens
	cfg            *config.Config
	window         *schedule.Window
	checks         []ReadyCheck
}

// Options 构造 Handler 所需的依赖
type Options struct {
	Orders   service.OrderService
	Payments service.PaymentService
	Menus    service.MenuService
	Auth     service.AuthService
	Admin    service.AdminService
	// Uploader 未配置媒体服务时为 nil
	Uploader media.Uploader
	Tokens   *auth.Tokens
	Config   *config.Config
	// Window 不带时区的取餐时间按其时区解释
	Window *schedule.Window
	Checks []ReadyCheck
}

func New(o Options) *Handler {
	return &Handler{
		orderService:   o.Orders,
		paymentService: o.Payments,
		menuService:    o.Menus,
		authService:    o.Auth,
		adminService:   o.Admin,
		uploader:       o.Uploader,
		tokens:         o.Tokens,
		cfg:            o.Config,
		window:         o.Window,
		checks:         o.Checks,
	}
}

func (h *Handler) location() *time.Location {
	if h.window == nil {
		return time.Local
	}
	return h.window.Location()
}

// badInput 绑定失败只返回固定文案，原始错误写日志
func badInput(c *gin.Context, msg string, err error) {
	logger.Debug("bind request", zap.String("path", c.FullPath()), zap.Error(err))
	response.BadRequest(c, msg)
}

type errorMapping struct {
	target error
	status int
	msg    string
}

var errorMappings = []errorMapping{
	{service.ErrPickupInPast, http.StatusBadRequest, "Pickup time in the past"},
	{service.ErrOutsideHours, http.StatusBadRequest, "Outside cafeteria hours"},
	{service.ErrSlotFull, http.StatusTooManyRequests, "Time slot at capacity"},
	{service.ErrMenuUnavailable, http.StatusBadRequest, "Menu unavailable"},
	{service.ErrInvalidItem, http.StatusBadRequest, "Invalid item"},
	{service.ErrEmptyOrder, http.StatusBadRequest, "Order must contain at least one item"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "Invalid status"},
	{service.ErrInvalidTransition, http.StatusConflict, "Invalid status transition"},
	{service.ErrStatusConflict, http.StatusConflict, "Order status changed, reload and retry"},
	{service.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{service.ErrNoActiveMenu, http.StatusBadRequest, "No active menu"},
	{service.ErrItemNotFound, http.StatusNotFound, "Item not found"},
	{service.ErrInvalidRating, http.StatusBadRequest, "Rating must be between 1 and 5"},
	{service.ErrEmailTaken, http.StatusConflict, "Email already registered"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrInvalidRole, http.StatusBadRequest, "Invalid role"},
	{service.ErrPaymentsDisabled, http.StatusServiceUnavailable, "Payments not configured"},
	{service.ErrUploadsDisabled, http.StatusInternalServerError, "Cloudinary not configured"},
}

// fail 把领域错误映射为 HTTP 状态码，其余按 500 处理
func fail(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		switch m.status {
		case http.StatusConflict:
			response.Conflict(c, m.msg)
		case http.StatusServiceUnavailable:
			response.ServiceUnavailable(c, m.msg)
		default:
			response.Fail(c, m.status, m.msg)
		}
		return
	}
	response.InternalError(c, err)
}
