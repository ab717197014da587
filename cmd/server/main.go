package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/eazyeats/config"
	"github.com/d60-Lab/eazyeats/internal/admission"
	"github.com/d60-Lab/eazyeats/internal/api"
	"github.com/d60-Lab/eazyeats/internal/api/handler"
	"github.com/d60-Lab/eazyeats/internal/api/middleware"
	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/media"
	"github.com/d60-Lab/eazyeats/internal/menucache"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/payment"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/database"
	"github.com/d60-Lab/eazyeats/pkg/logger"
	"github.com/d60-Lab/eazyeats/pkg/response"
	"github.com/d60-Lab/eazyeats/pkg/tracing"
)

// @title EazyEats API
// @version 1.0
// @description Cafeteria pre-ordering backend.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)
	response.SetProduction(cfg.Server.IsProduction())
	if err := middleware.RegisterValidators(); err != nil {
		return err
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Env,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db, model.AllModels()...); err != nil {
			return err
		}
	}

	checks := []handler.ReadyCheck{{Name: "database", Check: dbCheck(db)}}

	// 无 Redis 时退化为单实例：内存计数 + 本地广播
	hub := realtime.NewHub()
	var (
		counter admission.Counter    = admission.NewMemoryCounter()
		bus     realtime.Broadcaster = hub
		cache   *menucache.Cache
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}
		relay := realtime.NewRedisRelay(rdb, "", hub)
		if err := relay.Start(ctx); err != nil {
			return err
		}
		counter = admission.NewRedisCounter(rdb, "", 0)
		bus = relay
		cache = menucache.New(rdb, time.Minute)
		checks = append(checks, handler.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	window := schedule.NewWindow(cfg.Cafeteria.OpenHour, cfg.Cafeteria.CloseHour, cfg.Cafeteria.SlotMinutes, cfg.Cafeteria.TimeZone)
	tokens := auth.NewTokens(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	notifier := realtime.NewOrderNotifier(bus)

	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	menuRepo := repository.NewMenuRepository(db)

	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	} else {
		logger.Warn("stripe secret key not set, payments disabled")
	}

	var uploader media.Uploader
	if cfg.Cloudinary.CloudName != "" {
		u, err := media.NewCloudinaryUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			return err
		}
		uploader = u
	}

	h := handler.New(handler.Options{
		Orders: service.NewOrderService(service.OrderDeps{
			Orders:    orderRepo,
			Menus:     menuRepo,
			Admission: admission.NewController(window, counter, cfg.Cafeteria.SlotCapacity),
			Window:    window,
			Notifier:  notifier,
		}),
		Payments: service.NewPaymentService(orderRepo, gateway, notifier, service.PaymentConfig{
			Currency:       cfg.Stripe.Currency,
			MinimumAmount:  cfg.Stripe.MinimumAmount,
			FrontendOrigin: cfg.Server.FrontendOrigin,
		}),
		Menus:    service.NewMenuService(menuRepo, cache),
		Auth:     service.NewAuthService(userRepo, tokens),
		Admin:    service.NewAdminService(orderRepo, userRepo, window),
		Uploader: uploader,
		Tokens:   tokens,
		Config:   cfg,
		Window:   window,
		Checks:   checks,
	})

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx)

	router := api.NewRouter(api.RouterDeps{
		Handler:     h,
		Tokens:      tokens,
		Config:      cfg,
		WS:          realtime.NewServer(hub, cfg.Server.FrontendOrigin, 64),
		AuthLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.Stringer("window", window))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if cache != nil {
		cc := cache.Counters()
		logger.Info("menu cache", zap.Int64("hits", cc.Hits), zap.Int64("misses", cc.Misses))
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func dbCheck(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
