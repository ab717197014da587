package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/api/middleware"
	"github.com/d60-Lab/eazyeats/internal/payment"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/logger"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

// stripe 回调体上限
const maxWebhookBody = 64 << 10

type checkoutRequest struct {
	OrderID string `json:"orderId"`
}

type amountTooSmallResponse struct {
	Error         string `json:"error"`
	Detail        string `json:"detail"`
	MinimumAmount int64  `json:"minimumAmount"`
}

// CreateCheckoutSession 创建托管支付页
// @Summary 创建支付会话
// @Tags 支付
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body checkoutRequest true "订单ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} amountTooSmallResponse
// @Failure 404 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /payments/checkout-session [post]
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		response.BadRequest(c, "orderId required")
		return
	}

	url, err := h.paymentService.CreateCheckoutSession(c.Request.Context(), middleware.MustPrincipal(c), req.OrderID)
	var small *service.AmountTooSmallError
	switch {
	case err == nil:
		response.Success(c, gin.H{"url": url})
	case errors.As(err, &small):
		c.AbortWithStatusJSON(http.StatusBadRequest, amountTooSmallResponse{
			Error: "Amount too small",
			Detail: fmt.Sprintf("Order total must be at least ₹%d. Current total: ₹%.2f",
				small.Minimum/100, float64(small.Amount)/100),
			MinimumAmount: small.Minimum / 100,
		})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrPaymentsDisabled):
		fail(c, err)
	default:
		response.ServerError(c, "Failed to create checkout session", err)
	}
}

// PaymentWebhook 支付回调，需要原始请求体验签
// @Summary 支付回调
// @Tags 支付
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "签名"
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "Webhook Error"
// @Router /webhook/payments [post]
func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	err = h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		response.Success(c, gin.H{"received": true})
	case errors.Is(err, payment.ErrInvalidSignature):
		logger.Warn("webhook rejected", zap.Error(err), zap.String("ip", c.ClientIP()))
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
	case errors.Is(err, service.ErrPaymentsDisabled):
		fail(c, err)
	default:
		// 5xx 让支付方重投
		response.InternalError(c, err)
	}
}
