package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockgate/internal/cache"
	"stockgate/internal/config"
	"stockgate/internal/consumer"
	"stockgate/internal/db"
	"stockgate/internal/discovery"
	"stockgate/internal/handlers"
	"stockgate/internal/messaging"
	"stockgate/internal/publisher"
)

const (
	serviceName = "inventory-service"
	serviceID   = "inventory-service-1"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := config.Load()

	// Connect to PostgreSQL
	database, err := db.NewPostgresDB(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close()

	// Connect to Redis
	redisCache, err := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, 5*time.Minute)
	if err != nil {
		sugar.Fatalw("failed to connect to Redis", "error", err)
	}
	defer redisCache.Close()

	// Connect to RabbitMQ
	rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitHost, cfg.RabbitPort, cfg.RabbitUser, cfg.RabbitPassword)
	if err != nil {
		sugar.Fatalw("failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQ.Close()

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		sugar.Fatalw("failed to connect to Consul", "error", err)
	}
	err = consul.Register(discovery.ServiceConfig{
		Name: serviceName,
		ID:   serviceID,
		Port: cfg.InventoryPort,
		Tags: []string{"api", "inventory"},
	})
	if err != nil {
		sugar.Fatalw("failed to register service", "error", err)
	}
	defer consul.Deregister(serviceID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create repositories
	productRepo := db.NewProductRepository(database)
	cachedRepo := db.NewCachedProductRepository(productRepo, redisCache, sugar)

	// Create handler
	productHandler := handlers.NewProductHandler(cachedRepo, sugar)

	// Start the stock debiter
	if err := rabbitMQ.DeclareQueue(publisher.OrderConfirmedQueue); err != nil {
		sugar.Fatalw("failed to declare queue", "error", err)
	}
	messages, err := rabbitMQ.Consume(publisher.OrderConfirmedQueue)
	if err != nil {
		sugar.Fatalw("failed to consume messages", "error", err)
	}
	debiter := consumer.NewStockDebiter(cachedRepo, redisCache, sugar)
	go debiter.Run(ctx, messages)

	// Setup router
	router := gin.Default()

	router.GET("/health", productHandler.HealthCheck)
	router.GET("/products", productHandler.ListProducts)
	router.GET("/products/:id", productHandler.GetProduct)
	router.POST("/products", productHandler.CreateProduct)
	router.POST("/validate-stock", productHandler.ValidateStock)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.InventoryPort),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sugar.Infow("inventory service starting", "port", cfg.InventoryPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server error", "error", err)
	}
}
