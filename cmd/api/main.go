package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "distribuidora/api/swagger" // swagger docs
	"distribuidora/internal/config"
	"distribuidora/internal/database"
	"distribuidora/internal/handler"
	"distribuidora/internal/lock"
	"distribuidora/internal/middleware"
	"distribuidora/internal/repository"
	"distribuidora/internal/service"
	"distribuidora/internal/websocket"
	"distribuidora/pkg/token"

	"github.com/gin-gonic/gin"
)

const documentLockTTL = 10 * time.Second

// @title           Distribuidora API
// @version         1.0
// @description     Orders, returns and stock for a beverage and grocery distributor.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	config.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	logger.Info("connected to PostgreSQL")

	locker := lock.Noop()
	rdb, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("redis connection failed")
	}
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, documentLockTTL)
		logger.WithField("address", cfg.Redis.Address).Info("document numbers serialized through redis")
	} else {
		logger.Warn("REDIS_ADDRESS not set, relying on database constraints for document numbers")
	}

	tokens := token.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL)
	middleware.InitAuth(tokens, middleware.CookieOptions{
		Secure:     cfg.GinMode == gin.ReleaseMode,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	clock := service.NewClock(cfg.Timezone)
	auditRepo := repository.NewAuditRepository(db)
	deps := service.Dependencies{
		TxManager:       repository.NewTransactionManager(db),
		Users:           repository.NewUserRepository(db),
		Customers:       repository.NewCustomerRepository(db),
		Products:        repository.NewProductRepository(db),
		Orders:          repository.NewOrderRepository(db),
		Returns:         repository.NewReturnRepository(db),
		Movements:       repository.NewStockMovementRepository(db),
		Audit:           auditRepo,
		Locker:          locker,
		Clock:           clock,
		Notifier:        wsHub,
		Tokens:          tokens,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}

	loginLimit, err := middleware.RateLimit(cfg.LoginRateLimit)
	if err != nil {
		logger.WithError(err).Fatal("invalid LOGIN_RATE_LIMIT")
	}

	userService := service.NewUserService(deps)
	router := handler.NewRouter(handler.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Hub:         wsHub,
		Tokens:      tokens,
		Handlers: []handler.RouteRegistrar{
			handler.NewAuthHandler(userService, loginLimit),
			handler.NewUserHandler(userService),
			handler.NewCustomerHandler(service.NewCustomerService(deps)),
			handler.NewProductHandler(service.NewProductService(deps)),
			handler.NewOrderHandler(service.NewOrderService(deps), service.NewReportService(deps), clock.Location()),
			handler.NewReturnHandler(service.NewReturnService(deps), clock.Location()),
			handler.NewAuditHandler(service.NewAuditService(auditRepo)),
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
