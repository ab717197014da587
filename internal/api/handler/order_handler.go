package handler

import (
	"bytes"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/eazyeats/internal/api/middleware"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

// lineQty 接受数字或数字字符串，小数向下取整；缺省为 0，由服务层提到 1
type lineQty int

func (q *lineQty) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*q = 0
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(raw), `"`))
	if s == "" {
		*q = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "qty %q", s)
	}
	n := d.Floor()
	if n.GreaterThan(decimal.NewFromInt(maxLineQty)) {
		return errors.Errorf("qty %s too large", s)
	}
	*q = lineQty(n.IntPart())
	return nil
}

const maxLineQty = 1000

// 不带时区的取餐时间按食堂时区解释
var localPickupLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

var errInvalidPickup = errors.New("invalid scheduledPickupAt")

func parsePickup(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localPickupLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidPickup
}

type orderLineRequest struct {
	ItemID string  `json:"itemId" binding:"required"`
	Qty    lineQty `json:"qty" swaggertype:"integer"`
}

type createOrderRequest struct {
	Items             []orderLineRequest `json:"items" binding:"required,min=1,dive"`
	ScheduledPickupAt string             `json:"scheduledPickupAt" binding:"required"`
	Instructions      string             `json:"instructions" binding:"max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// trackedOrder 追踪页只需要的字段
type trackedOrder struct {
	ID                string              `json:"id"`
	ShortID           string              `json:"shortId"`
	Status            model.OrderStatus   `json:"status"`
	PaymentStatus     model.PaymentStatus `json:"paymentStatus"`
	Total             float64             `json:"total"`
	Items             []model.OrderItem   `json:"items"`
	ScheduledPickupAt time.Time           `json:"scheduledPickupAt"`
	CreatedAt         time.Time           `json:"createdAt"`
	Instructions      string              `json:"instructions,omitempty"`
}

// CreateOrder 下单
// @Summary 创建预约取餐订单
// @Tags 订单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createOrderRequest true "订单"
// @Success 201 {object} map[string]model.Order
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response "时段已满"
// @Router /orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid order payload", err)
		return
	}
	pickup, err := parsePickup(req.ScheduledPickupAt, h.location())
	if err != nil {
		response.BadRequest(c, "Invalid pickup time")
		return
	}
	lines := make([]service.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, service.OrderLine{ItemID: it.ItemID, Qty: int(it.Qty)})
	}

	order, err := h.orderService.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:            middleware.MustPrincipal(c).UserID,
		Items:             lines,
		ScheduledPickupAt: pickup,
		Instructions:      req.Instructions,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"order": order})
}

// ListMyOrders 我的订单，新的在前
// @Summary 我的订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]model.Order
// @Router /orders/mine [get]
func (h *Handler) ListMyOrders(c *gin.Context) {
	orders, err := h.orderService.ListMine(c.Request.Context(), middleware.MustPrincipal(c).UserID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	response.Success(c, gin.H{"orders": orders})
}

// TrackOrder 按完整 ID 或 6 位短号追踪
// @Summary 追踪订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param idOrShort path string true "订单ID或短号"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders/track/{idOrShort} [get]
func (h *Handler) TrackOrder(c *gin.Context) {
	order, history, err := h.orderService.Track(c.Request.Context(), middleware.MustPrincipal(c), c.Param("idOrShort"))
	if err != nil {
		fail(c, err)
		return
	}
	if history == nil {
		history = []*model.OrderStatusHistory{}
	}
	response.Success(c, gin.H{
		"order": trackedOrder{
			ID:                order.ID,
			ShortID:           order.ShortID,
			Status:            order.Status,
			PaymentStatus:     order.PaymentStatus,
			Total:             order.Total,
			Items:             order.Items,
			ScheduledPickupAt: order.ScheduledPickupAt,
			CreatedAt:         order.CreatedAt,
			Instructions:      order.Instructions,
		},
		"history": history,
	})
}

// GetOrder 本人、员工或管理员可查看
// @Summary 订单详情
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} map[string]model.Order
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), middleware.MustPrincipal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"order": order})
}

// UpdateOrderStatus 员工推进订单状态
// @Summary 更新订单状态
// @Tags 订单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Param request body updateStatusRequest true "目标状态"
// @Success 200 {object} map[string]model.Order
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response "不允许的状态流转"
// @Router /orders/{id}/status [patch]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid status")
		return
	}
	order, err := h.orderService.UpdateStatus(c.Request.Context(), middleware.MustPrincipal(c), c.Param("id"), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"order": order})
}
