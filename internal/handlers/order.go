package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockgate/internal/client"
	"stockgate/internal/models"
	"stockgate/internal/store"
)

// StockValidator is the synchronous validation call into the inventory
// service. Satisfied by client.InventoryClient.
type StockValidator interface {
	ValidateStock(ctx context.Context, req models.CreateOrderRequest) error
}

// EventPublisher emits the confirmation event consumed by the stock
// debiter. Satisfied by publisher.OrderPublisher.
type EventPublisher interface {
	PublishOrderConfirmed(order *models.Order) error
}

// OrderHandler coordinates order submission: validate stock synchronously,
// persist the confirmed order, then hand the stock debit to the event
// channel. It never mutates stock itself.
type OrderHandler struct {
	orders    store.OrderStore
	validator StockValidator
	publisher EventPublisher
	logger    *zap.SugaredLogger
}

func NewOrderHandler(orders store.OrderStore, validator StockValidator, publisher EventPublisher, logger *zap.SugaredLogger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		validator: validator,
		publisher: publisher,
		logger:    logger,
	}
}

// HealthCheck returns server status
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "sales-service"})
}

// GetOrder returns a single order with items
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to get order", "order_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// CreateOrder validates stock, persists the order as Confirmed and
// publishes the confirmation event. The response does not wait for the
// asynchronous debit: callers must not assume stock is decremented yet.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.validator.ValidateStock(c.Request.Context(), req); err != nil {
		var shortage *client.ShortageError
		if errors.As(err, &shortage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": shortage.Message})
			return
		}

		// Ambiguous validation result: fail closed, create nothing.
		var dep *client.DependencyError
		if errors.As(err, &dep) {
			h.logger.Errorw("stock validation unavailable", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "stock validation unavailable, retry later"})
			return
		}

		h.logger.Errorw("stock validation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order := models.Order{Status: models.OrderStatusConfirmed}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if err := h.orders.Create(c.Request.Context(), &order); err != nil {
		h.logger.Errorw("failed to create order", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Publish failure leaves the order Confirmed but not yet debited. The
	// event is lost until replayed; the order itself is not rolled back.
	if err := h.publisher.PublishOrderConfirmed(&order); err != nil {
		h.logger.Errorw("failed to publish order confirmation", "order_id", order.ID, "error", err)
	} else {
		h.logger.Infow("order confirmation published", "order_id", order.ID)
	}

	h.logger.Infow("order created", "order_id", order.ID, "status", order.Status)
	c.JSON(http.StatusCreated, gin.H{"id": order.ID, "status": order.Status})
}
