package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"stockgate/internal/models"
	"stockgate/internal/store"
)

// dedupeTTL bounds how long a processed event id is remembered. Redelivery
// of the same event after this window would debit again.
const dedupeTTL = 24 * time.Hour

// Deduper claims and releases event ids. Satisfied by cache.RedisCache.
type Deduper interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// StockDebiter consumes order.confirmed events and debits stock per line
// item. Messages are acknowledged only after the debits have been applied;
// an infrastructure failure releases the dedupe claim and requeues.
type StockDebiter struct {
	products store.ProductStore
	dedupe   Deduper
	logger   *zap.SugaredLogger
}

// NewStockDebiter creates a debiter. dedupe may be nil, in which case
// duplicate deliveries of the same event debit twice.
func NewStockDebiter(products store.ProductStore, dedupe Deduper, logger *zap.SugaredLogger) *StockDebiter {
	return &StockDebiter{
		products: products,
		dedupe:   dedupe,
		logger:   logger,
	}
}

// Run processes deliveries until the context is cancelled or the channel
// closes.
func (c *StockDebiter) Run(ctx context.Context, messages <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("stock debiter stopping", "reason", ctx.Err())
			return
		case msg, ok := <-messages:
			if !ok {
				c.logger.Info("delivery channel closed, stock debiter stopping")
				return
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *StockDebiter) handle(ctx context.Context, msg amqp.Delivery) {
	var event models.OrderConfirmedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Errorw("failed to parse event, dropping", "error", err)
		msg.Nack(false, false) // Don't requeue bad messages
		return
	}

	if !c.claim(ctx, event) {
		msg.Ack(false)
		return
	}

	c.logger.Infow("processing order confirmation", "order_id", event.OrderID, "items", len(event.Items))

	// Best-effort per item: unknown products and stock floors are logged
	// and skipped, only infrastructure errors requeue the whole event.
	requeue := false
	for _, item := range event.Items {
		err := c.products.Debit(ctx, item.ProductID, item.Quantity)

		var short *store.InsufficientStockError
		switch {
		case err == nil:
			c.logger.Infow("stock debited", "product_id", item.ProductID, "quantity", item.Quantity)
		case errors.Is(err, store.ErrNotFound):
			c.logger.Warnw("skipping unknown product", "product_id", item.ProductID, "order_id", event.OrderID)
		case errors.As(err, &short):
			c.logger.Warnw("stock floor reached, debit dropped",
				"product_id", item.ProductID, "quantity", item.Quantity, "order_id", event.OrderID)
		default:
			c.logger.Errorw("failed to debit stock", "product_id", item.ProductID, "error", err)
			requeue = true
		}
	}

	if requeue {
		c.release(ctx, event)
		msg.Nack(false, true)
		c.logger.Warnw("order confirmation requeued", "order_id", event.OrderID)
		return
	}

	msg.Ack(false)
	c.logger.Infow("order confirmation processed", "order_id", event.OrderID)
}

// claim reports whether this event should be processed. A duplicate event
// id is acknowledged without debiting. If the deduper is down the event is
// processed anyway rather than stalling the queue.
func (c *StockDebiter) claim(ctx context.Context, event models.OrderConfirmedEvent) bool {
	if c.dedupe == nil || event.EventID == "" {
		return true
	}

	first, err := c.dedupe.SetNX(ctx, dedupeKey(event.EventID), event.OrderID, dedupeTTL)
	if err != nil {
		c.logger.Warnw("dedupe store unavailable, processing without dedupe", "error", err)
		return true
	}
	if !first {
		c.logger.Infow("duplicate event skipped", "event_id", event.EventID, "order_id", event.OrderID)
		return false
	}
	return true
}

func (c *StockDebiter) release(ctx context.Context, event models.OrderConfirmedEvent) {
	if c.dedupe == nil || event.EventID == "" {
		return
	}
	if err := c.dedupe.Delete(ctx, dedupeKey(event.EventID)); err != nil {
		c.logger.Warnw("failed to release dedupe claim", "event_id", event.EventID, "error", err)
	}
}

func dedupeKey(eventID string) string {
	return "event:" + eventID
}
