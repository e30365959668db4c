package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stockgate/internal/cache"
	"stockgate/internal/models"
	"stockgate/internal/store"
)

// CachedProductRepository layers a Redis read-through cache over any
// ProductStore. Writes (Create, Debit) invalidate the affected keys so
// readers never see stale quantities longer than one round trip.
type CachedProductRepository struct {
	next   store.ProductStore
	cache  *cache.RedisCache
	logger *zap.SugaredLogger
}

func NewCachedProductRepository(next store.ProductStore, cache *cache.RedisCache, logger *zap.SugaredLogger) *CachedProductRepository {
	return &CachedProductRepository{
		next:   next,
		cache:  cache,
		logger: logger,
	}
}

// Cache key helpers
func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

func allProductsKey() string {
	return "products:all"
}

// GetAll returns all products (with caching)
func (r *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	cacheKey := allProductsKey()

	var products []models.Product
	err := r.cache.Get(ctx, cacheKey, &products)
	if err == nil {
		r.logger.Debugw("cache hit", "key", cacheKey)
		return products, nil
	}

	products, err = r.next.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, products); err != nil {
		r.logger.Warnw("failed to cache products", "error", err)
	}

	return products, nil
}

// GetByID returns a single product (with caching)
func (r *CachedProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	cacheKey := productKey(id)

	var product models.Product
	err := r.cache.Get(ctx, cacheKey, &product)
	if err == nil {
		r.logger.Debugw("cache hit", "key", cacheKey)
		return &product, nil
	}

	if err != redis.Nil {
		r.logger.Warnw("cache error", "key", cacheKey, "error", err)
	}

	p, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, cacheKey, p); err != nil {
		r.logger.Warnw("failed to cache product", "key", cacheKey, "error", err)
	}

	return p, nil
}

// Create inserts a new product and invalidates the list cache
func (r *CachedProductRepository) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	product, err := r.next.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Delete(ctx, allProductsKey()); err != nil {
		r.logger.Warnw("failed to invalidate cache", "error", err)
	}

	return product, nil
}

// ValidateDemand always goes to the backing store: a stock check against a
// cached quantity would widen the validate-then-debit window for nothing.
func (r *CachedProductRepository) ValidateDemand(ctx context.Context, items []models.OrderItemEvent) error {
	return r.next.ValidateDemand(ctx, items)
}

// Debit decrements stock and invalidates the product's cache entries
func (r *CachedProductRepository) Debit(ctx context.Context, productID, quantity int) error {
	if err := r.next.Debit(ctx, productID, quantity); err != nil {
		return err
	}

	if err := r.cache.Delete(ctx, productKey(productID)); err != nil {
		r.logger.Warnw("failed to invalidate cache", "product_id", productID, "error", err)
	}
	if err := r.cache.Delete(ctx, allProductsKey()); err != nil {
		r.logger.Warnw("failed to invalidate cache", "error", err)
	}

	return nil
}
