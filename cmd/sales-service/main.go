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

	"stockgate/internal/client"
	"stockgate/internal/config"
	"stockgate/internal/db"
	"stockgate/internal/discovery"
	"stockgate/internal/handlers"
	"stockgate/internal/messaging"
	"stockgate/internal/publisher"
)

const (
	serviceName = "sales-service"
	serviceID   = "sales-service-1"
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

	// Connect to RabbitMQ
	rabbitMQ, err := messaging.NewRabbitMQ(cfg.RabbitHost, cfg.RabbitPort, cfg.RabbitUser, cfg.RabbitPassword)
	if err != nil {
		sugar.Fatalw("failed to connect to RabbitMQ", "error", err)
	}
	defer rabbitMQ.Close()

	// Create publisher
	if err := rabbitMQ.DeclareQueue(publisher.OrderConfirmedQueue); err != nil {
		sugar.Fatalw("failed to declare queue", "error", err)
	}
	orderPublisher := publisher.NewOrderPublisher(rabbitMQ)

	// Register with Consul
	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		sugar.Fatalw("failed to connect to Consul", "error", err)
	}
	err = consul.Register(discovery.ServiceConfig{
		Name: serviceName,
		ID:   serviceID,
		Port: cfg.SalesPort,
		Tags: []string{"api", "sales"},
	})
	if err != nil {
		sugar.Fatalw("failed to register service", "error", err)
	}
	defer consul.Deregister(serviceID)

	// Inventory Service client (HTTP). The validate-stock call is internal
	// and unauthenticated: only the gateway-facing surfaces carry tokens.
	inventoryClient := client.NewInventoryClient(cfg.InventoryBaseURL)

	// Create repository and handler
	orderRepo := db.NewOrderRepository(database)
	orderHandler := handlers.NewOrderHandler(orderRepo, inventoryClient, orderPublisher, sugar)

	// Setup router
	router := gin.Default()

	router.GET("/health", orderHandler.HealthCheck)
	router.GET("/orders/:id", orderHandler.GetOrder)
	router.POST("/orders", orderHandler.CreateOrder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.SalesPort),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sugar.Infow("sales service starting", "port", cfg.SalesPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server error", "error", err)
	}
}
