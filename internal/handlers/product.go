package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockgate/internal/models"
	"stockgate/internal/store"
)

// ProductHandler exposes the stock ledger: product reads and creation plus
// the point-in-time demand validation used by the sales service.
type ProductHandler struct {
	products store.ProductStore
	logger   *zap.SugaredLogger
}

func NewProductHandler(products store.ProductStore, logger *zap.SugaredLogger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// HealthCheck returns server status
func (h *ProductHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "inventory-service"})
}

// ListProducts returns all products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.products.GetAll(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to get product", "product_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a new product
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorw("failed to create product", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Infow("product created", "product_id", product.ID, "name", product.Name)
	c.JSON(http.StatusCreated, product)
}

// ValidateStock checks a list of demands against current stock. A 200 here
// is not a reservation: stock may be gone by the time it is debited.
func (h *ProductHandler) ValidateStock(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	demands := make([]models.OrderItemEvent, 0, len(req.Items))
	for _, item := range req.Items {
		demands = append(demands, models.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if err := h.products.ValidateDemand(c.Request.Context(), demands); err != nil {
		var short *store.InsufficientStockError
		if errors.As(err, &short) {
			c.JSON(http.StatusBadRequest, gin.H{"error": short.Error()})
			return
		}
		h.logger.Errorw("failed to validate stock", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
