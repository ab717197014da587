package api

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/eazyeats/config"
	_ "github.com/d60-Lab/eazyeats/docs"
	"github.com/d60-Lab/eazyeats/internal/api/handler"
	"github.com/d60-Lab/eazyeats/internal/api/middleware"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/pkg/response"
)

type RouterDeps struct {
	Handler *handler.Handler
	Tokens  *auth.Tokens
	Config  *config.Config
	// WS serves /ws; nil disables realtime.
	WS http.Handler
	// AuthLimiter throttles /auth; nil disables it.
	AuthLimiter *middleware.IPRateLimiter
}

// NewRouter 组装路由与中间件
func NewRouter(d RouterDeps) *gin.Engine {
	cfg := d.Config
	h := d.Handler

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(middleware.CORS(cfg.Server.FrontendOrigin))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/webhook"})))

	authed := middleware.Auth(d.Tokens)
	staff := middleware.RequireRoles(model.RoleStaff, model.RoleAdmin)
	admin := middleware.RequireRoles(model.RoleAdmin)

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/config", h.PublicConfig)
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if d.WS != nil {
		r.GET("/ws", gin.WrapH(d.WS))
	}

	// 支付回调：原始 body，不走鉴权
	r.POST("/webhook/payments", h.PaymentWebhook)
	r.POST("/webhook/stripe", h.PaymentWebhook)

	authGroup := r.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Middleware())
	}
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}

	menu := r.Group("/menu")
	{
		menu.GET("", h.GetMenu)
		menu.POST("", authed, admin, h.CreateMenu)
		menu.POST("/items", authed, staff, h.AddMenuItem)
		menu.PATCH("/items/:itemId", authed, staff, h.UpdateMenuItem)
		menu.PATCH("/items/:itemId/availability", authed, staff, h.SetItemAvailability)
		menu.DELETE("/items/:itemId", authed, staff, h.DeleteMenuItem)
		menu.POST("/items/:itemId/reviews", authed, h.ReviewMenuItem)
	}

	orders := r.Group("/orders", authed)
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/mine", h.ListMyOrders)
		orders.GET("/track/:idOrShort", h.TrackOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", staff, h.UpdateOrderStatus)
	}

	r.POST("/payments/checkout-session", authed, h.CreateCheckoutSession)

	adminGroup := r.Group("/admin", authed)
	{
		adminGroup.GET("/orders", staff, h.AdminListOrders)
		adminGroup.GET("/metrics", admin, h.AdminMetrics)
		adminGroup.PATCH("/users/:id/role", admin, h.AdminSetRole)
	}

	r.POST("/upload", authed, staff, h.UploadImage)
	r.POST("/upload/image", authed, staff, h.UploadImage)
	r.POST("/cart", authed, h.Cart)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	return r
}
