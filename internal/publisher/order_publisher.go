package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"stockgate/internal/models"
)

// OrderConfirmedQueue carries confirmation events from the sales service to
// the inventory service's stock debiter.
const OrderConfirmedQueue = "order.confirmed"

// Queue abstracts the broker so tests can capture published payloads.
type Queue interface {
	Publish(queue string, message []byte) error
}

type OrderPublisher struct {
	mq Queue
}

func NewOrderPublisher(mq Queue) *OrderPublisher {
	return &OrderPublisher{mq: mq}
}

// PublishOrderConfirmed publishes an order.confirmed event with a fresh
// event id for consumer-side dedupe.
func (p *OrderPublisher) PublishOrderConfirmed(order *models.Order) error {
	event := models.OrderConfirmedEvent{
		EventID: uuid.NewString(),
		OrderID: order.ID,
	}

	for _, item := range order.Items {
		event.Items = append(event.Items, models.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.mq.Publish(OrderConfirmedQueue, data)
}
