package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

const principalKey = "principal"

// Auth 校验 Bearer access token，并把身份放入上下文
func Auth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		p, err := tokens.VerifyAccess(strings.TrimSpace(raw))
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRoles 角色校验，须挂在 Auth 之后
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			response.Unauthorized(c, "Unauthorized")
			return
		}
		if !p.HasRole(roles...) {
			response.Forbidden(c, "Forbidden")
			return
		}
		c.Next()
	}
}

func Principal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// MustPrincipal 仅用于 Auth 之后的处理器
func MustPrincipal(c *gin.Context) auth.Principal {
	p, _ := Principal(c)
	return p
}
