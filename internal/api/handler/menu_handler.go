package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eazyeats/internal/api/middleware"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

type createMenuRequest struct {
	Title string `json:"title" binding:"required,min=2"`
}

type createItemRequest struct {
	Name        string  `json:"name" binding:"required,min=2"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Category    string  `json:"category"`
	IsAvailable *bool   `json:"isAvailable"`
	Stock       *int    `json:"stock" binding:"omitempty,min=0"`
	ImageURL    string  `json:"imageUrl"`
}

type updateItemRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=2"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Category    *string  `json:"category"`
	IsAvailable *bool    `json:"isAvailable"`
	Stock       *int     `json:"stock" binding:"omitempty,min=0"`
	ImageURL    *string  `json:"imageUrl"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" binding:"required"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

// GetMenu 当前菜单
// @Summary 当前菜单（含评分）
// @Tags 菜单
// @Produce json
// @Success 200 {object} map[string]model.Menu
// @Router /menu [get]
func (h *Handler) GetMenu(c *gin.Context) {
	menu, err := h.menuService.Active(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"menu": menu})
}

// CreateMenu 新建菜单并设为唯一 active
// @Summary 新建菜单
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createMenuRequest true "菜单"
// @Success 201 {object} map[string]model.Menu
// @Router /menu [post]
func (h *Handler) CreateMenu(c *gin.Context) {
	var req createMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid menu payload", err)
		return
	}
	menu, err := h.menuService.CreateMenu(c.Request.Context(), req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"menu": menu})
}

// AddMenuItem 向当前菜单加菜
// @Summary 添加菜品
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createItemRequest true "菜品"
// @Success 201 {object} map[string]model.MenuItem
// @Failure 400 {object} response.Response
// @Router /menu/items [post]
func (h *Handler) AddMenuItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid item payload", err)
		return
	}
	item, err := h.menuService.AddItem(c.Request.Context(), service.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"item": item})
}

// UpdateMenuItem 部分更新
// @Summary 修改菜品
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "菜品ID"
// @Param request body updateItemRequest true "字段"
// @Success 200 {object} map[string]model.MenuItem
// @Failure 404 {object} response.Response
// @Router /menu/items/{itemId} [patch]
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid item payload", err)
		return
	}
	item, err := h.menuService.UpdateItem(c.Request.Context(), c.Param("itemId"), service.ItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"item": item})
}

// SetItemAvailability 上下架
// @Summary 菜品上下架
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "菜品ID"
// @Param request body availabilityRequest true "是否可售"
// @Success 200 {object} map[string]model.MenuItem
// @Router /menu/items/{itemId}/availability [patch]
func (h *Handler) SetItemAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid availability payload", err)
		return
	}
	item, err := h.menuService.SetAvailability(c.Request.Context(), c.Param("itemId"), *req.IsAvailable)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"item": item})
}

// DeleteMenuItem 删除菜品及其评价
// @Summary 删除菜品
// @Tags 菜单
// @Security BearerAuth
// @Param itemId path string true "菜品ID"
// @Success 200 {object} map[string]bool
// @Router /menu/items/{itemId} [delete]
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	if err := h.menuService.DeleteItem(c.Request.Context(), c.Param("itemId")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ReviewMenuItem 每人每菜一条评价，重复提交覆盖
// @Summary 评价菜品
// @Tags 菜单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "菜品ID"
// @Param request body reviewRequest true "评分"
// @Success 201 {object} map[string]model.Review
// @Router /menu/items/{itemId}/reviews [post]
func (h *Handler) ReviewMenuItem(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid review payload", err)
		return
	}
	review, err := h.menuService.Review(c.Request.Context(), middleware.MustPrincipal(c).UserID,
		c.Param("itemId"), req.Rating, req.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, gin.H{"review": review})
}
