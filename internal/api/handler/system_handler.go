package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/logger"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

// UploadImage 上传菜品图片到图床
// @Summary 上传图片
// @Tags 上传
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param image formData file true "图片，最大 5MB"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /upload/image [post]
func (h *Handler) UploadImage(c *gin.Context) {
	if h.uploader == nil {
		fail(c, service.ErrUploadsDisabled)
		return
	}
	maxBytes := h.cfg.Cloudinary.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+(1<<20))

	fh, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "No file uploaded")
		return
	}
	if fh.Size > maxBytes {
		response.BadRequest(c, "File too large")
		return
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		response.BadRequest(c, "Only image uploads are allowed")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "No file uploaded")
		return
	}
	defer f.Close()

	url, err := h.uploader.Upload(c.Request.Context(), f)
	if err != nil {
		response.ServerError(c, "Upload failed", err)
		return
	}
	response.Success(c, gin.H{"url": url})
}

// Cart 仅用于前端加购前校验登录态
// @Summary 购物车登录校验
// @Tags 系统
// @Security BearerAuth
// @Success 200 {object} map[string]bool
// @Router /cart [post]
func (h *Handler) Cart(c *gin.Context) {
	response.Success(c, nil)
}

// Health 存活探针
// @Summary 健康检查
// @Tags 系统
// @Success 200 {object} map[string]bool
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, nil)
}

// Ready 就绪探针：数据库及 Redis
// @Summary 就绪检查
// @Tags 系统
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			logger.Warn("readiness check failed", zap.String("check", chk.Name), zap.Error(err))
			checks[chk.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[chk.Name] = "up"
	}
	c.JSON(status, gin.H{"ok": status == http.StatusOK, "checks": checks})
}

// PublicConfig 前端用的营业时间配置
// @Summary 营业配置
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config [get]
func (h *Handler) PublicConfig(c *gin.Context) {
	cf := h.cfg.Cafeteria
	var zone any
	if cf.TimeZone != "" {
		zone = cf.TimeZone
	}
	response.Success(c, gin.H{
		"cafeteriaOpenHour":  cf.OpenHour,
		"cafeteriaCloseHour": cf.CloseHour,
		"cafeteriaTimeZone":  zone,
		"slotMinutes":        cf.SlotMinutes,
		"slotCapacity":       cf.SlotCapacity,
	})
}

// Root 跳转前端
func (h *Handler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, h.cfg.Server.FrontendOrigin)
}
