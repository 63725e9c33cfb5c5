package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	_ "gstledger/docs"
	"gstledger/internal/caching"
	"gstledger/internal/config"
	"gstledger/internal/handlers"
	"gstledger/internal/jobs/background"
	"gstledger/internal/logger"
	"gstledger/internal/middleware"
	"gstledger/internal/repositories"
	"gstledger/internal/services"
	"gstledger/pkg/database"
)

const version = "1.0.0"

//go:generate swag init --dir ../ --generalInfo cmd/main.go --output ../docs --outputTypes go --parseInternal

//	@title			GST Ledger API
//	@version		1.0
//	@description	Orders, GST invoices and payments.
//	@BasePath		/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		panic(err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.JWTSecretGenerated {
		log.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}

	store := repositories.NewStore(pool)
	transactor := repositories.NewTransactor(pool)

	cache := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, log)
	defer func() { _ = cache.Close() }()

	documents, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		return err
	}
	if err := documents.EnsureBucketExists(ctx); err != nil {
		// PDF export degrades, everything else keeps working.
		log.Warn("invoice bucket unavailable", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
	}

	orderSvc := services.NewOrderService(transactor, store, cache, log)
	invoiceSvc := services.NewInvoiceService(transactor, store, cache, documents,
		services.NewInvoicePDFRenderer("Tax Invoice"), cfg.PDFURLExpiry, log)
	paymentSvc := services.NewPaymentService(transactor, cache, services.GatewayConfig{
		MerchantKey:  cfg.MerchantKey,
		MerchantSalt: cfg.MerchantSalt,
		SuccessURL:   cfg.PaymentSuccessURL,
		FailureURL:   cfg.PaymentFailureURL,
	}, log)

	jwtMiddleware, err := middleware.NewJWTMiddleware(middleware.JWTConfig{
		Secret:  cfg.JWTSecret,
		JWKSURL: cfg.JWTJWKSURL,
	}, log)
	if err != nil {
		return err
	}
	defer jwtMiddleware.Close()

	scheduler, err := background.NewJobScheduler(store.Transactions, background.StalePaymentConfig{
		Interval: cfg.StalePaymentInterval,
		MaxAge:   cfg.StalePaymentAge,
	}, log)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	orderHandlers := handlers.NewOrderHandlers(orderSvc, log)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, log)
	paymentHandlers := handlers.NewPaymentHandlers(paymentSvc, cfg.PaymentCallbackSecret, log)
	healthHandlers := handlers.NewHealthHandlers(pool, cache, documents, scheduler, version)

	e := echo.New()
	e.HideBanner = true

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	versionMiddleware := middleware.NewVersionMiddleware(version)
	e.Use(versionMiddleware.APIVersionResolver())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/metrics", healthHandlers.GetMetrics)
	e.GET("/versions", versionMiddleware.Versions)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")
	v1.Use(versionMiddleware.VersionHeader("v1"))

	protected := v1.Group("")
	protected.Use(jwtMiddleware.Handler())

	// A signed callback comes from the gateway without a bearer token.
	if paymentHandlers.CallbackRequiresJWT() {
		log.Warn("PAYMENT_CALLBACK_SECRET not set, payment callback requires a bearer token")
		protected.POST("/payments/callback", paymentHandlers.PaymentCallback)
	} else {
		v1.POST("/payments/callback", paymentHandlers.PaymentCallback)
	}

	protected.GET("/orders", orderHandlers.ListOrders)
	protected.POST("/orders", orderHandlers.CreateOrder)
	protected.GET("/orders/:id", orderHandlers.GetOrder)
	protected.PUT("/orders/:id", orderHandlers.UpdateOrder)
	protected.DELETE("/orders/:id", orderHandlers.DeleteOrder)
	protected.POST("/orders/:id/invoices", invoiceHandlers.CreateInvoice)

	protected.GET("/invoices", invoiceHandlers.ListInvoices)
	protected.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	protected.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	protected.POST("/invoices/:id/pdf", invoiceHandlers.GenerateInvoicePDF)

	protected.POST("/payments", paymentHandlers.InitiatePayment)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gstledger server starting", zap.String("version", version), zap.String("port", cfg.HTTPPort))
		if err := e.Start(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
