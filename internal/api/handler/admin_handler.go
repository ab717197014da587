package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

type listOrdersQuery struct {
	Status string    `form:"status" binding:"omitempty,orderstatus"`
	From   time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int       `form:"limit" binding:"omitempty,min=1"`
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// AdminListOrders 后台订单列表
// @Summary 订单列表
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param from query string false "取餐时间起（RFC3339）"
// @Param to query string false "取餐时间止（RFC3339）"
// @Param limit query int false "条数" default(50)
// @Success 200 {object} map[string][]model.Order
// @Router /admin/orders [get]
func (h *Handler) AdminListOrders(c *gin.Context) {
	var q listOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badInput(c, "Invalid query", err)
		return
	}
	orders, err := h.adminService.ListOrders(c.Request.Context(), repository.OrderFilter{
		Status: model.OrderStatus(q.Status),
		From:   optionalTime(q.From),
		To:     optionalTime(q.To),
		Limit:  q.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	response.Success(c, gin.H{"orders": orders})
}

// AdminMetrics 看板
// @Summary 订单统计
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Metrics
// @Router /admin/metrics [get]
func (h *Handler) AdminMetrics(c *gin.Context) {
	m, err := h.adminService.Metrics(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, m)
}

// AdminSetRole 修改用户角色
// @Summary 修改角色
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body setRoleRequest true "角色"
// @Success 200 {object} map[string]userView
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/role [patch]
func (h *Handler) AdminSetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid role")
		return
	}
	u, err := h.adminService.SetRole(c.Request.Context(), c.Param("id"), model.Role(req.Role))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user": viewUser(u)})
}
