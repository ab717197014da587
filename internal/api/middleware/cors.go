package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS 只放行前端域名，允许携带凭证（刷新 cookie）
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reqOrigin := c.GetHeader("Origin"); reqOrigin != "" && reqOrigin == origin {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
