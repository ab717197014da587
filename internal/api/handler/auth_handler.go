package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

const (
	refreshCookie     = "refreshToken"
	refreshCookiePath = "/auth"
)

type registerRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Name       string `json:"name" binding:"required,min=2"`
	EmployeeID string `json:"employeeId"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userView struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

type sessionResponse struct {
	AccessToken string   `json:"accessToken"`
	User        userView `json:"user"`
}

func viewUser(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, token, maxAge, refreshCookiePath, "", h.cfg.Server.IsProduction(), true)
}

func (h *Handler) writeSession(c *gin.Context, s *service.Session) {
	h.setRefreshCookie(c, s.RefreshToken, int(h.tokens.RefreshTTL().Seconds()))
	response.Success(c, sessionResponse{AccessToken: s.AccessToken, User: viewUser(s.User)})
}

// Register 注册；带工号即为员工
// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 200 {object} sessionResponse
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid registration payload", err)
		return
	}
	sess, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		EmployeeID: req.EmployeeID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.writeSession(c, sess)
}

// Login 登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "凭证"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, "Invalid login payload", err)
		return
	}
	sess, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.writeSession(c, sess)
}

// Refresh 用 cookie 中的 refresh token 换新 access token
// @Summary 刷新令牌
// @Tags 认证
// @Produce json
// @Success 200 {object} sessionResponse
// @Failure 401 {object} response.Response
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		response.Unauthorized(c, "No refresh token")
		return
	}
	sess, err := h.authService.Refresh(c.Request.Context(), token)
	switch {
	case err == nil:
		h.writeSession(c, sess)
	case errors.Is(err, service.ErrUserNotFound):
		response.Unauthorized(c, "User not found")
	default:
		response.Unauthorized(c, "Invalid refresh token")
	}
}

// Logout 清除 refresh cookie
// @Summary 退出
// @Tags 认证
// @Success 200 {object} map[string]bool
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.setRefreshCookie(c, "", -1)
	response.Success(c, nil)
}
