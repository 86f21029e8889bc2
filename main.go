package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"topup-gateway/internal/config"
	"topup-gateway/internal/fulfillment"
	"topup-gateway/internal/handlers"
	"topup-gateway/internal/kafka"
	"topup-gateway/internal/logger"
	"topup-gateway/internal/middleware"
	"topup-gateway/internal/migration"
	rediswrap "topup-gateway/internal/redis"
	"topup-gateway/internal/services"
	"topup-gateway/internal/storage"
	"topup-gateway/internal/tracing"
	"topup-gateway/internal/worker"
)

// Global logger instance
var log *logger.Logger

type routeHandlers struct {
	webhook *handlers.WebhookHandler
	orders  *handlers.OrderHandler
	gateway *handlers.GatewayHandler
	health  *handlers.HealthHandler
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		migration.RunMigration(os.Args[2:])
		return
	}

	log = logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("ENV", "Error loading .env file, using environment variables")
	}

	log.LogProcess("STARTUP", "Top-up gateway starting up...")

	cfg := config.Load()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", "Invalid configuration: "+err.Error())
	}
	log.Info("CONFIG", "Configuration loaded successfully")

	shutdownTracing, err := tracing.InitTracerProvider(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Fatal("TRACING", "Failed to initialize tracer: "+err.Error())
	}
	if cfg.Tracing.JaegerEndpoint == "" {
		log.Warn("TRACING", "JAEGER_ENDPOINT not set, tracing disabled")
	}

	healthChecks := map[string]handlers.HealthCheck{}

	var store storage.Store
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("DATABASE", "Using in-memory storage, orders are lost on restart")
		store = storage.NewInMemoryStore()
	default:
		log.LogProcess("DATABASE", "Initializing MySQL database...")
		mysqlStore, err := storage.NewMySQLStore(cfg.Database, log)
		if err != nil {
			log.Fatal("DATABASE", "Failed to initialize MySQL: "+err.Error())
		}
		healthChecks["database"] = mysqlStore.HealthCheck
		store = mysqlStore
	}
	defer store.Close()

	var secretCache services.SecretCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cache := rediswrap.NewRedis(redisClient)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn("REDIS", "Redis unavailable, gateway secrets will be read from the database: "+err.Error())
		cache.Close()
	} else {
		log.LogProcess("REDIS", "Redis connection successful")
		secretCache = cache
		healthChecks["redis"] = cache.Ping
		defer cache.Close()
	}
	cancelPing()

	log.LogProcess("KAFKA", "Initializing Kafka producer...")
	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopicPrefix, cfg.Kafka.MockMode, log)
	if err != nil {
		log.Fatal("KAFKA", "Failed to create Kafka producer: "+err.Error())
	}
	defer kafkaProducer.Close()

	dispatcher := fulfillment.NewFunctionClient(cfg.Fulfillment.FunctionsURL, cfg.Fulfillment.ServiceKey, cfg.Fulfillment.Timeout, log)
	if cfg.Fulfillment.ServiceKey == "" {
		log.Warn("FULFILLMENT", "FUNCTIONS_SERVICE_KEY not set, process-topup will be called without credentials")
	}

	gatewayService := services.NewGatewayService(store, secretCache, cfg.Redis.SecretTTL, log)
	orderService := services.NewOrderService(store, kafkaProducer, log)
	webhookService := services.NewWebhookService(store, gatewayService, dispatcher, kafkaProducer, log)
	log.LogProcess("SERVICE", "Services initialized")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if !cfg.Kafka.MockMode {
		log.LogProcess("KAFKA", "Initializing Kafka consumer...")
		kafkaConsumer, err := kafka.NewOrderConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CheckoutTopic, log)
		if err != nil {
			log.Fatal("KAFKA", "Failed to create Kafka consumer: "+err.Error())
		}
		defer kafkaConsumer.Close()

		go func() {
			log.LogKafka("START", cfg.Kafka.CheckoutTopic, "Starting Kafka consumer goroutine")
			if err := kafkaConsumer.ConsumeOrders(ctx, orderService.ImportOrder); err != nil && ctx.Err() == nil {
				log.Error("KAFKA", "Consumer error: "+err.Error())
			}
		}()
	}

	if cfg.Sweeper.Enabled {
		sweeper := worker.NewStaleOrderSweeper(store, kafkaProducer, log, cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter)
		go sweeper.Run(ctx)
	}

	router := setupRouter(cfg, routeHandlers{
		webhook: handlers.NewWebhookHandler(webhookService, log),
		orders:  handlers.NewOrderHandler(orderService, log),
		gateway: handlers.NewGatewayHandler(gatewayService, log),
		health:  handlers.NewHealthHandler(cfg.Tracing.ServiceName, healthChecks),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.LogProcess("SERVER", "Starting HTTP server on port "+cfg.Server.Port)
		log.Info("STARTUP", "Webhook available at: http://localhost"+cfg.Server.Port+"/functions/v1/ikhode-webhook/{orderId}")
		log.Info("STARTUP", "Health check available at: http://localhost"+cfg.Server.Port+"/health")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "Server failed to start: "+err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("SHUTDOWN", "Received shutdown signal, initiating graceful shutdown...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", "Server forced to shutdown: "+err.Error())
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", "Failed to flush traces: "+err.Error())
	}

	log.Info("SHUTDOWN", "Top-up gateway shutdown completed")
}

func setupRouter(cfg *config.Config, h routeHandlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.CORS())
	router.Use(middleware.RateLimit(cfg.RateLimit, log))

	router.GET("/health", h.health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	functions := router.Group("/functions/v1")
	{
		functions.OPTIONS("/ikhode-webhook", h.webhook.HandleIkhodeWebhook)
		functions.OPTIONS("/ikhode-webhook/:orderId", h.webhook.HandleIkhodeWebhook)
		functions.POST("/ikhode-webhook", h.webhook.HandleIkhodeWebhook)
		functions.POST("/ikhode-webhook/:orderId", h.webhook.HandleIkhodeWebhook)
	}

	admin := middleware.AdminAuth(cfg.AdminAPIKey, log)

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", h.orders.CreateOrder)
			orders.GET("/:id", h.orders.GetOrder)
			orders.GET("", admin, h.orders.ListOrders)
			orders.PATCH("/:id/status", admin, h.orders.UpdateStatus)
		}

		gateways := v1.Group("/gateways", admin)
		{
			gateways.PUT("/:slug/secret", h.gateway.UpdateSecret)
			gateways.POST("/:slug/secret/rotate", h.gateway.RotateSecret)
		}
	}

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
