package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "backoffice/api/swagger" // swagger docs
	"backoffice/internal/audit"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/handler"
	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Shipping Back Office API
// @version         1.0
// @description     Order pricing, settlement ledger and staff salary settlement for a shipping back office.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Seed(db, cfg.BaseCurrency); err != nil {
		logger.Error("database seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	accountRepo := repository.NewAccountRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Audit sink
	auditWorker := audit.NewWorker(auditRepo, cfg.AuditBuffer, logger)
	auditWorker.Start()

	observers := service.Observers{Audit: auditWorker, Notifier: wsHub}
	settings := service.NewSettingsProvider(settingsRepo, model.Settings{
		Currency:    cfg.BaseCurrency,
		PointsPrice: cfg.PointsPrice,
	})

	// Services
	ledger := service.NewLedgerService(accountRepo, txManager)
	reconciler := service.NewReconciler(ledger, customerRepo)
	shipmentService := service.NewShipmentService(shipmentRepo, orderRepo, branchRepo, reconciler, settings, txManager, observers)
	rateService := service.NewRateService(shipmentRepo, orderRepo, invoiceRepo, reconciler, settings, txManager, observers)
	orderService := service.NewOrderService(orderRepo, shipmentRepo, customerRepo, branchRepo, invoiceRepo, ledger, reconciler, settings, txManager, observers)
	invoiceService := service.NewInvoiceService(invoiceRepo, orderRepo, txManager, observers)
	accountService := service.NewAccountService(accountRepo, reportRepo, ledger, settings, txManager, observers)
	salaryService := service.NewSalaryService(staffRepo, ledger, settings, txManager, observers)
	auditService := service.NewAuditService(auditRepo)

	// Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewShipmentHandler(shipmentService, rateService),
		handler.NewOrderHandler(orderService),
		handler.NewInvoiceHandler(invoiceService),
		handler.NewAccountHandler(accountService),
		handler.NewStaffHandler(salaryService),
		handler.NewSettingsHandler(settings),
		handler.NewAuditHandler(auditService),
	}

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("invalid RATE_LIMIT", "value", cfg.RateLimit, "error", err)
		os.Exit(1)
	}

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.StructuredLoggingMiddleware(logger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	secret := []byte(cfg.JWTSecret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// API Routing
	api := router.Group("/api", middleware.RateLimit(rateLimiter), middleware.Authenticate(secret))
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	auditWorker.Shutdown()
	logger.Info("server exited")
}
