package response

import (
	"net/http"
	"sync/atomic"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

// Response 错误响应体
type Response struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

var production atomic.Bool

// SetProduction 开启后 5xx 响应不返回错误详情
func SetProduction(on bool) { production.Store(on) }

// Success 200，data 为空时返回 {ok:true}
func Success(c *gin.Context, data any) {
	if data == nil {
		data = gin.H{"ok": true}
	}
	c.JSON(http.StatusOK, data)
}

// Created 201 创建成功
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Fail 按状态码返回 {error}
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Error: msg})
}

func BadRequest(c *gin.Context, msg string)   { Fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)    { Fail(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)     { Fail(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)     { Fail(c, http.StatusConflict, msg) }

// TooManyRequests 容量耗尽
func TooManyRequests(c *gin.Context, msg string) { Fail(c, http.StatusTooManyRequests, msg) }

// ServiceUnavailable 依赖未配置或不可用
func ServiceUnavailable(c *gin.Context, msg string) { Fail(c, http.StatusServiceUnavailable, msg) }

// InternalError 记录错误，绑定了 Sentry hub 时上报，返回 500；生产环境不返回详情
func InternalError(c *gin.Context, err error) {
	ServerError(c, "Internal server error", err)
}

// ServerError 带自定义对外文案的 InternalError
func ServerError(c *gin.Context, msg string, err error) {
	logger.Error(msg,
		zap.Error(err),
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString("request_id")),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	body := Response{Error: msg}
	if !production.Load() && err != nil {
		body.Detail = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
